// Command dongle is a desk-side monitor: it scans for a Progressor-named
// sensor, connects, starts a measurement and prints the weight stream.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/crimpworks/hangboard/pkg/proto"
	"github.com/crimpworks/hangboard/pkg/transport/ble"
)

var adapter = bluetooth.DefaultAdapter

func main() {
	prefix := flag.String("prefix", "Progressor", "device name prefix to connect to")
	duration := flag.Duration("duration", 30*time.Second, "how long to stream")
	flag.Parse()

	if err := adapter.Enable(); err != nil {
		log.Fatalf("enable BLE stack: %v", err)
	}

	log.Printf("Scanning for devices named %q...", *prefix)
	var found bluetooth.ScanResult
	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if strings.HasPrefix(result.LocalName(), *prefix) {
			found = result
			_ = a.StopScan()
		}
	})
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	log.Printf("Found %s (%s), connecting...", found.LocalName(), found.Address.String())

	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}
	defer device.Disconnect()

	services, err := device.DiscoverServices([]bluetooth.UUID{ble.ServiceUUID})
	if err != nil || len(services) == 0 {
		log.Fatalf("could not discover the Progressor service: %v", err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{
		ble.DataUUID,
		ble.ControlUUID,
	})
	if err != nil || len(chars) != 2 {
		log.Fatalf("could not discover characteristics: %v", err)
	}

	var dataChar, controlChar bluetooth.DeviceCharacteristic
	for _, char := range chars {
		switch char.UUID() {
		case ble.DataUUID:
			dataChar = char
		case ble.ControlUUID:
			controlChar = char
		}
	}

	err = dataChar.EnableNotifications(func(buf []byte) {
		if kg, us, ok := proto.DecodeWeightFrame(buf); ok {
			fmt.Printf("%8.3f kg  t=%dus\n", kg, us)
		}
	})
	if err != nil {
		log.Fatalf("failed to enable notifications: %v", err)
	}

	if _, err := controlChar.Write([]byte{proto.CmdStartMeasurement}); err != nil {
		log.Fatalf("failed to start measurement: %v", err)
	}
	log.Println("Streaming...")

	time.Sleep(*duration)

	if _, err := controlChar.Write([]byte{proto.CmdStopMeasurement}); err != nil {
		log.Printf("failed to stop measurement: %v", err)
	}
}
