package controllers

import (
	"time"

	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
)

type health struct {
	Status  string `json:"status"`
	Monitor bool   `json:"monitor"`
	Uptime  string `json:"uptime"`
}

type HealthController struct {
	started time.Time
	monitor *monitor.Client
}

func NewHealthController(started time.Time, mon *monitor.Client) *HealthController {
	return &HealthController{started: started, monitor: mon}
}

func (hc *HealthController) Show(c *ctx.Context) {
	c.Success(health{
		Status:  "ok",
		Monitor: hc.monitor.IsInitialized(),
		Uptime:  time.Since(hc.started).Round(time.Second).String(),
	})
}
