package util

import (
	"net"
	"os"
	"strconv"
)

// GetLocalIP 注册中心使用的对外地址，优先取 POD_IP/HOST_IP，否则取第一个非回环 IPv4
func GetLocalIP() string {
	for _, key := range []string{"POD_IP", "HOST_IP"} {
		if ip := os.Getenv(key); ip != "" {
			return ip
		}
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "127.0.0.1"
}

// AdvertiseAddr 把监听地址转换为注册用的 host 和 port，监听所有网卡时用本机IP
func AdvertiseAddr(listen string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = GetLocalIP()
	}
	return host, port, nil
}
