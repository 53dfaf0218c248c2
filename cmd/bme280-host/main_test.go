//go:build linux

package main

import (
	"encoding/json"
	"testing"
	"time"

	"bme280-go/types"
)

func TestGeneratedConfig(t *testing.T) {
	raw, err := generatedConfig("i2c1", 0x77, 5*time.Second)
	if err != nil {
		t.Fatalf("generatedConfig: %v", err)
	}
	var doc struct {
		HAL struct {
			Version int `json:"version"`
			Devices []struct {
				ID     string             `json:"id"`
				Type   string             `json:"type"`
				BusRef types.BusRef       `json:"bus_ref"`
				Params types.BME280Params `json:"params"`
			} `json:"devices"`
		} `json:"hal"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.HAL.Version != 1 || len(doc.HAL.Devices) != 1 {
		t.Fatalf("hal = %+v", doc.HAL)
	}
	d := doc.HAL.Devices[0]
	if d.Type != "bme280" || d.BusRef.ID != "i2c1" || d.Params.Addr != 0x77 || d.Params.PeriodMS != 5000 {
		t.Fatalf("device = %+v", d)
	}
}

func TestOpenFactory_UnknownBackend(t *testing.T) {
	if _, err := openFactory("spidev", "i2c1", 1); err == nil {
		t.Fatal("expected error")
	}
}
