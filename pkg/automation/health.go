package automation

import (
	"time"

	"github.com/amosWeiskopf/seoautomation/pkg/content"
	"github.com/amosWeiskopf/seoautomation/pkg/monitor"
	"github.com/amosWeiskopf/seoautomation/pkg/notifier"
	"github.com/amosWeiskopf/seoautomation/pkg/reporter"
)

// Health aggregates every service's health report
type Health struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Services  ServicesHealth `json:"services"`
}

// ServicesHealth holds the per-service reports
type ServicesHealth struct {
	ContentUpdate            content.Health  `json:"contentUpdate"`
	PerformanceMonitoring    monitor.Health  `json:"performanceMonitoring"`
	Reporting                reporter.Health `json:"reporting"`
	SearchEngineNotification notifier.Health `json:"searchEngineNotification"`
}

// TaskStatus describes one task
type TaskStatus struct {
	Name     string      `json:"name"`
	Enabled  bool        `json:"enabled"`
	Schedule string      `json:"schedule"`
	Running  bool        `json:"running"`
	LastRun  *TaskResult `json:"lastRun"`
}

// Status is the dashboard's overview
type Status struct {
	Domain       string          `json:"domain"`
	Timestamp    time.Time       `json:"timestamp"`
	Tasks        []TaskStatus    `json:"tasks"`
	Content      content.Status  `json:"contentUpdate"`
	Monitoring   monitor.Status  `json:"performanceMonitoring"`
	Reporting    reporter.Status `json:"reporting"`
	Notification notifier.Status `json:"searchEngineNotification"`
}

// HealthCheck is "healthy" when every service is, "degraded" otherwise
func (o *Orchestrator) HealthCheck() Health {
	h := Health{
		Status:    "healthy",
		Timestamp: o.now().UTC(),
		Services: ServicesHealth{
			ContentUpdate:            o.Content.HealthCheck(),
			PerformanceMonitoring:    o.Monitor.HealthCheck(),
			Reporting:                o.Reporter.HealthCheck(),
			SearchEngineNotification: o.Notifier.HealthCheck(),
		},
	}
	for _, s := range []string{
		h.Services.ContentUpdate.Status,
		h.Services.PerformanceMonitoring.Status,
		h.Services.Reporting.Status,
		h.Services.SearchEngineNotification.Status,
	} {
		if s != "healthy" {
			h.Status = "degraded"
		}
	}
	return h
}

// Status reports every task and service
func (o *Orchestrator) Status() Status {
	st := Status{
		Domain:       o.cfg.Website.Domain,
		Timestamp:    o.now().UTC(),
		Tasks:        make([]TaskStatus, 0, len(Tasks)),
		Content:      o.Content.Status(),
		Monitoring:   o.Monitor.Status(),
		Reporting:    o.Reporter.Status(),
		Notification: o.Notifier.Status(),
	}

	for _, task := range Tasks {
		o.mu.RLock()
		running := o.running[task]
		o.mu.RUnlock()
		st.Tasks = append(st.Tasks, TaskStatus{
			Name:     task,
			Enabled:  o.Enabled(task),
			Schedule: o.schedule(task),
			Running:  running,
			LastRun:  o.LastRun(task),
		})
	}
	return st
}
