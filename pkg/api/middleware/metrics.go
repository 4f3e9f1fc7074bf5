/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
)

// MetricsMiddleware returns a Gin middleware that records request
// metrics for the local API.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.ConcurrentRequests.Inc()
		defer metrics.ConcurrentRequests.Dec()

		startTime := time.Now()

		requestSize := c.Request.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		c.Next()

		duration := time.Since(startTime)

		status := c.Writer.Status()
		responseSize := c.Writer.Size()
		if responseSize < 0 {
			responseSize = 0
		}

		// FullPath gives the route pattern so path parameters do not
		// explode label cardinality.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		statusStr := strconv.Itoa(status)
		method := c.Request.Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusStr).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(method, endpoint).Observe(duration.Seconds())
		metrics.HTTPRequestSizeBytes.WithLabelValues(endpoint).Observe(float64(requestSize))
		metrics.HTTPResponseSizeBytes.WithLabelValues(endpoint).Observe(float64(responseSize))
	}
}
