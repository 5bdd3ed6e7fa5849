// Copyright 2025 Warden
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limit identifiers reported on 429 responses and audit entries.
const (
	LimitAgentRPM   = "agent_rpm"
	LimitAgentDaily = "agent_daily"
	LimitService    = "service"
)

// defaultServiceLimit caps aggregate per-service traffic when no explicit
// limit is configured for the upstream.
const defaultServiceLimit = 1000

// RateLimiter enforces per-agent and per-service request budgets using
// fixed-window counters in Redis. Counters are increment-based and only
// approximately synchronized under high concurrency; brief over-limit bursts
// are an accepted soft-limit trade-off. Redis outages fail open so that a
// cache failure does not take down the gateway.
type RateLimiter struct {
	client        *redis.Client
	serviceLimits map[string]int
}

// RateLimitResult reports the outcome of a rate check. When Allowed is
// false, Exceeded names the limit that tripped and Remaining/ResetAt feed
// the 429 response metadata.
type RateLimitResult struct {
	Allowed   bool
	Exceeded  string
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// NewRateLimiter creates a rate limiter. serviceLimits overrides the
// per-service aggregate budget per minute; services absent from the map use
// defaultServiceLimit.
func NewRateLimiter(client *redis.Client, serviceLimits map[string]int) *RateLimiter {
	if serviceLimits == nil {
		serviceLimits = make(map[string]int)
	}
	return &RateLimiter{client: client, serviceLimits: serviceLimits}
}

func (rl *RateLimiter) serviceLimit(service string) int {
	if limit, ok := rl.serviceLimits[service]; ok && limit > 0 {
		return limit
	}
	return defaultServiceLimit
}

// Check increments all applicable counters for this request and reports
// whether it is within budget. Checks run strictly before credential
// resolution so a throttled agent never triggers tenant-secret decryption.
func (rl *RateLimiter) Check(ctx context.Context, agent *Agent, service string) *RateLimitResult {
	now := time.Now().UTC()
	minuteWindow := now.Unix() / 60
	dayWindow := now.Format("20060102")

	agentMinuteKey := fmt.Sprintf("rl:agent:%s:m:%d", agent.ID, minuteWindow)
	agentDayKey := fmt.Sprintf("rl:agent:%s:d:%s", agent.ID, dayWindow)
	serviceKey := fmt.Sprintf("rl:svc:%s:m:%d", service, minuteWindow)

	pipe := rl.client.Pipeline()
	minuteCount := pipe.Incr(ctx, agentMinuteKey)
	pipe.Expire(ctx, agentMinuteKey, 2*time.Minute)
	dayCount := pipe.Incr(ctx, agentDayKey)
	pipe.Expire(ctx, agentDayKey, 25*time.Hour)
	serviceCount := pipe.Incr(ctx, serviceKey)
	pipe.Expire(ctx, serviceKey, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a Redis outage must not take down the gateway.
		gatewayLog.Warn(agent.ID, "", "Rate limit check failed, failing open",
			map[string]interface{}{"error": err.Error(), "service": service})
		return &RateLimitResult{Allowed: true}
	}

	minuteReset := now.Truncate(time.Minute).Add(time.Minute)
	dayReset := now.Truncate(24 * time.Hour).Add(24 * time.Hour)

	if count := minuteCount.Val(); count > int64(agent.RateLimitRPM) {
		return &RateLimitResult{
			Exceeded: LimitAgentRPM,
			Limit:    agent.RateLimitRPM,
			ResetAt:  minuteReset,
		}
	}

	if count := dayCount.Val(); count > int64(agent.RateLimitDaily) {
		return &RateLimitResult{
			Exceeded: LimitAgentDaily,
			Limit:    agent.RateLimitDaily,
			ResetAt:  dayReset,
		}
	}

	svcLimit := rl.serviceLimit(service)
	if count := serviceCount.Val(); count > int64(svcLimit) {
		return &RateLimitResult{
			Exceeded: LimitService,
			Limit:    svcLimit,
			ResetAt:  minuteReset,
		}
	}

	remaining := agent.RateLimitRPM - int(minuteCount.Val())
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:   true,
		Limit:     agent.RateLimitRPM,
		Remaining: remaining,
		ResetAt:   minuteReset,
	}
}
