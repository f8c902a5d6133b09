package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/dramaspikes/gpsAlarmApp/config"
	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
)

type positionMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// metersPerDegreeLat approximates the length of one degree of latitude.
const metersPerDegreeLat = 111_195.0

var (
	configPath string
	broker     string
	deviceID  string
	targetLat float64
	targetLon float64
	reach     float64
	steps     int
	interval  time.Duration

	rootCmd = &cobra.Command{
		Use:   "geoalarm-publisher",
		Short: "Publish mock position samples over MQTT.",
		Long: `Walks a device back and forth along a meridian through the target point,
from --reach meters south of it to the target and back, publishing one position
sample per interval.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if steps < 2 {
				return fmt.Errorf("steps must be at least 2")
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return run(ctx)
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVar(&broker, "broker", "", "MQTT broker URL, overrides mqtt.broker")
	rootCmd.Flags().StringVar(&deviceID, "device", "mock-device", "device id to publish as")
	rootCmd.Flags().Float64Var(&targetLat, "lat", -6.2088, "target latitude")
	rootCmd.Flags().Float64Var(&targetLon, "lon", 106.8456, "target longitude")
	rootCmd.Flags().Float64Var(&reach, "reach", 3000, "farthest distance from the target in meters")
	rootCmd.Flags().IntVar(&steps, "steps", 12, "samples per leg of the walk")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Second, "time between samples")
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if broker == "" {
		broker = cfg.MQTT.Broker
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("geoalarm-mock-publisher-" + deviceID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	topic := strings.Replace(cfg.MQTT.Topic, "+", deviceID, 1)
	logger.Infof(ctx, "connected to %s, publishing to %s every %s", broker, topic, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		lat, lon := walk(i)
		payload, err := json.Marshal(positionMessage{
			DeviceID:  deviceID,
			Latitude:  lat,
			Longitude: lon,
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return err
		}

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.WarnKV(ctx, "publish failed", "topic", topic, "error", err)
		} else {
			logger.DebugKV(ctx, "published", "topic", topic, "payload", string(payload))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// walk returns the i-th point of a triangle wave between reach meters south of
// the target and the target itself.
func walk(i int) (float64, float64) {
	period := 2 * (steps - 1)
	pos := i % period
	if pos >= steps {
		pos = period - pos
	}
	fraction := 1 - float64(pos)/float64(steps-1)
	offset := fraction * reach / metersPerDegreeLat

	return math.Max(-90, targetLat-offset), targetLon
}
