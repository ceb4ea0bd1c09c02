package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 系统指标
var (
	// DBConnections 数据库连接池状态
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forrflow_db_connections",
			Help: "数据库连接池连接数",
		},
		[]string{"state"},
	)

	// SubWorkflowInstancesByState 各状态的子工作流实例数量
	SubWorkflowInstancesByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forrflow_sub_workflow_instances",
			Help: "各状态的子工作流实例数量",
		},
		[]string{"state"},
	)
)

// StateCounter 按状态统计子工作流实例
type StateCounter func(ctx context.Context) (map[string]int64, error)

// SystemCollector 定期采集连接池与子工作流状态分布
type SystemCollector struct {
	db       *sql.DB
	counter  StateCounter
	interval time.Duration
}

// NewSystemCollector 创建系统指标收集器，db 与 counter 均可为空
func NewSystemCollector(db *sql.DB, counter StateCounter, interval time.Duration) *SystemCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SystemCollector{db: db, counter: counter, interval: interval}
}

// Start 后台定期采集，ctx 取消后退出
func (c *SystemCollector) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.CollectOnce(ctx)
		for {
			select {
			case <-ticker.C:
				c.CollectOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CollectOnce 采集一次
func (c *SystemCollector) CollectOnce(ctx context.Context) {
	if c.db != nil {
		stats := c.db.Stats()
		DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
		DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
		DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	}

	if c.counter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	counts, err := c.counter(ctx)
	if err != nil {
		// 采集失败保留上一次的值
		return
	}
	SubWorkflowInstancesByState.Reset()
	for state, n := range counts {
		SubWorkflowInstancesByState.WithLabelValues(state).Set(float64(n))
	}
}
