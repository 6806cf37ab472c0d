/*
 * @module service/metrics/metrics
 * @description 表单构建服务的Prometheus指标
 * @architecture 监控层
 * @rules 指标在包初始化时注册到默认注册表，由 /metrics 暴露
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "formbuilder"

// 结果标签
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// FormOperations 表单生命周期操作计数
	FormOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "form_operations_total",
		Help:      "表单创建/更新/删除次数",
	}, []string{"operation", "result"})

	// SubmissionOperations 提交记录操作计数
	SubmissionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submission_operations_total",
		Help:      "提交记录写入/查询/删除次数",
	}, []string{"operation", "result"})

	// SchemaOperations 表结构变更计数
	SchemaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schema_operations_total",
		Help:      "生成表的建表、重命名列、新增列次数",
	}, []string{"operation"})

	// MigrationDuration 迁移执行耗时
	MigrationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "migration_run_duration_seconds",
		Help:      "执行待执行迁移的耗时",
		Buckets:   prometheus.DefBuckets,
	})

	// ReconcileRuns 表结构对账执行次数
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schema_reconcile_runs_total",
		Help:      "表结构对账任务执行次数",
	}, []string{"result"})
)
