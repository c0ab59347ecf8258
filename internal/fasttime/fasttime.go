// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fasttime exposes a coarse, syscall-free clock for hot paths
// that stamp packets with a timestamp but don't need wall-clock
// precision on every call.
package fasttime

import (
	"sync/atomic"
	"time"
)

const resolution = 100 * time.Microsecond

func init() {
	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()
		for tm := range ticker.C {
			atomic.StoreInt64(&currentNanos, tm.UnixNano())
		}
	}()
}

var currentNanos = time.Now().UnixNano()

// UnixNano 获取当前纳秒级时间戳 由后台 ticker 每 100µs 刷新一次
//
// Packet 的 timestamp_ns 只用于排查和排序 不参与任何协议决策
// 所以可以接受这点精度损失 换取不对每个 packet 都调用 time.Now()
func UnixNano() int64 {
	return atomic.LoadInt64(&currentNanos)
}
