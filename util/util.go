package util

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/sony/sonyflake"
)

var (
	sonyFlake *sonyflake.Sonyflake
	once      sync.Once
)

// InitSonyFlake 初始化 Sonyflake 实例
// 没有私网地址时（本地、CI）用主机名哈希作为机器号
func InitSonyFlake() {
	once.Do(func() {
		sf, err := sonyflake.New(sonyflake.Settings{})
		if err != nil {
			hlog.Warnf("[TradeID] 默认机器号不可用, 使用主机名哈希: %v", err)
			sf, err = sonyflake.New(sonyflake.Settings{MachineID: hostMachineID})
			if err != nil {
				panic(err)
			}
		}
		sonyFlake = sf
	})
}

func hostMachineID() (uint16, error) {
	host, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return uint16(h.Sum32()), nil
}

// GenerateTradeID 生成唯一成交ID
func GenerateTradeID() (string, error) {
	InitSonyFlake()
	id, err := sonyFlake.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

// ParseList 解析逗号分隔的配置项，忽略空项
func ParseList(s string) []string {
	var res []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
