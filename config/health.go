package config

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// TrackingReport returns the tracking state name and the number of alarms.
type TrackingReport func() (state string, alarms int)

type namedCheck struct {
	name  string
	check Check
}

// HealthChecker serves /healthz. The service is unhealthy when a dependency
// check fails and degraded when alarms exist but positions are not tracked,
// since no alarm can fire then.
type HealthChecker struct {
	checks   []namedCheck
	tracking TrackingReport
}

func NewHealthChecker(tracking TrackingReport) *HealthChecker {
	return &HealthChecker{tracking: tracking}
}

// AddCheck registers a dependency check. Checks run in registration order.
func (h *HealthChecker) AddCheck(name string, check Check) *HealthChecker {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
	return h
}

func PostgresCheck(db *sql.DB) Check {
	return db.PingContext
}

func RabbitMQCheck(conn *amqp.Connection) Check {
	return func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	}
}

func MQTTCheck(client mqtt.Client) Check {
	return func(context.Context) error {
		if !client.IsConnectionOpen() {
			return errors.New("not connected")
		}
		return nil
	}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	code := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, nc := range h.checks {
		if err := nc.check(ctx); err != nil {
			deps[nc.name] = gin.H{"status": "down", "error": err.Error()}
			code = http.StatusServiceUnavailable
			continue
		}
		deps[nc.name] = gin.H{"status": "up"}
	}

	state, alarms := h.tracking()
	armed := alarms == 0 || state == "tracking"

	status := "healthy"
	switch {
	case code != http.StatusOK:
		status = "unhealthy"
	case !armed:
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"tracking":     gin.H{"state": state, "alarms": alarms, "armed": armed},
		"dependencies": deps,
	})
}
