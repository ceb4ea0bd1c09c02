package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forrflow_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forrflow_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 扇出任务指标
var (
	// ForrGroupsGenerated 展开得到的参数组数量（过滤前）
	ForrGroupsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forrflow_forr_groups_generated_total",
			Help: "笛卡尔积展开得到的参数组总数",
		},
	)

	// ForrGroupsFiltered 被过滤条件剔除的参数组数量
	ForrGroupsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forrflow_forr_groups_filtered_total",
			Help: "被过滤条件剔除的参数组总数",
		},
	)

	// ForrGroupsTruncated 超过子工作流实例上限被丢弃的参数组数量
	ForrGroupsTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forrflow_forr_groups_truncated_total",
			Help: "超过子工作流实例上限被丢弃的参数组总数",
		},
	)

	// SubWorkflowInstancesCreated 创建的子工作流实例数量
	SubWorkflowInstancesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forrflow_sub_workflow_instances_created_total",
			Help: "创建的子工作流实例总数",
		},
	)

	// SubWorkflowInstancesReset 恢复执行时被重置为 WAIT_TO_RUN 的子工作流实例数量
	SubWorkflowInstancesReset = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forrflow_sub_workflow_instances_reset_total",
			Help: "恢复执行时被重置的子工作流实例总数",
		},
		[]string{"command_type"},
	)

	// SubWorkflowDispatched 下发启动命令的子工作流实例数量
	SubWorkflowDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forrflow_sub_workflow_dispatched_total",
			Help: "下发启动命令的子工作流实例总数",
		},
	)

	// ForrChecksTotal 扇出任务状态检查次数
	ForrChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forrflow_forr_checks_total",
			Help: "扇出任务状态检查次数",
		},
		[]string{"status"},
	)
)

// 系统指标
var (
	// BuildInfo 构建信息
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forrflow_build_info",
			Help: "构建信息",
		},
		[]string{"version", "go_version"},
	)
)

// RecordBuildInfo 记录构建信息
func RecordBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
