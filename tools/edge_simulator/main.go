package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

type config struct {
	baseURL  string
	tenant   string
	devices  string
	apiKey   string
	interval time.Duration
	jitter   float64
}

type metricSpec struct {
	name string
	unit string
	base float64
	span float64
}

var metricSpecs = []metricSpec{
	{name: "temperature", unit: "C", base: 22, span: 10},
	{name: "humidity", unit: "%", base: 50, span: 30},
	{name: "co2", unit: "ppm", base: 600, span: 500},
}

func main() {
	cfg := parseConfig()
	if cfg.tenant == "" {
		log.Fatal("tenant is required")
	}
	devices := strings.Split(cfg.devices, ",")
	if len(devices) == 0 || devices[0] == "" {
		log.Fatal("devices is required")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	url := strings.TrimRight(cfg.baseURL, "/") + "/ingest/http/" + cfg.tenant
	log.Printf("posting batches to %s every %s for %d devices", url, cfg.interval, len(devices))

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()
	for {
		for _, device := range devices {
			if err := postBatch(client, url, cfg, strings.TrimSpace(device)); err != nil {
				log.Printf("post error: device=%s err=%v", device, err)
			}
		}
		<-ticker.C
	}
}

func postBatch(client *http.Client, url string, cfg config, device string) error {
	type metric struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}
	payload := struct {
		DeviceID  string   `json:"deviceId"`
		APIKey    string   `json:"apiKey"`
		Timestamp int64    `json:"timestamp"`
		Metrics   []metric `json:"metrics"`
	}{
		DeviceID:  device,
		APIKey:    cfg.apiKey,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, spec := range metricSpecs {
		value := spec.base + (rand.Float64()*2-1)*spec.span*cfg.jitter
		payload.Metrics = append(payload.Metrics, metric{
			Type:  spec.name,
			Value: float64(int(value*100)) / 100,
			Unit:  spec.unit,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.baseURL, "base-url", "http://localhost:8080", "platform base URL")
	flag.StringVar(&cfg.tenant, "tenant", "", "tenant slug")
	flag.StringVar(&cfg.devices, "devices", "", "comma-separated device serials")
	flag.StringVar(&cfg.apiKey, "api-key", "dev-key", "device api key")
	flag.DurationVar(&cfg.interval, "interval", 5*time.Second, "interval between batches")
	flag.Float64Var(&cfg.jitter, "jitter", 1.0, "value jitter factor")
	flag.Parse()
	return cfg
}
