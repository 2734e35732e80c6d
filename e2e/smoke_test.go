//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

const mosquittoPort = nat.Port("1883/tcp")

type telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c"`
	Humidity    *float64  `json:"humidity_pct"`
}

func TestSmoke_PipelineExportsTelemetry(t *testing.T) {
	repoRoot := repoRootPath(t)
	host, port := startMosquitto(t)
	source := startSource(t)

	received := subscribe(t, host, port, "stations/91/telemetry")

	bin := buildBinary(t, repoRoot)
	outDir := t.TempDir()
	stations := filepath.Join(outDir, "stations.csv")
	if err := os.WriteFile(stations, []byte("Id;Namn\n98230;Stockholm-Observatoriekullen A\n91;Stockholm\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(bin, "stockholm")
	cmd.Dir = outDir
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=debug",
		"STATIONS_FILE="+stations,
		"OUTPUT_DIR="+outDir,
		"DATA_URL_TEMPLATE="+source+"/parameter/{parameter}/station/{station}/data.csv",
		"CHARTS=false",
		"MQTT_BROKER="+host,
		"MQTT_PORT="+port.Port(),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	body, err := os.ReadFile(filepath.Join(outDir, "91_data_file.csv"))
	if err != nil {
		t.Fatalf("merged file: %v\n%s", err, out)
	}
	if lines := strings.Split(strings.TrimSpace(string(body)), "\n"); len(lines) != 4 {
		t.Fatalf("merged rows = %d, want 3\n%s", len(lines)-1, body)
	}

	msgs := received.wait(t, 3, 10*time.Second)
	first := msgs[0]
	if first.StationID != "91" || first.Temperature == nil || *first.Temperature != -3.2 || first.Humidity == nil || *first.Humidity != 90 {
		t.Errorf("first telemetry = %+v", first)
	}
}

func TestSmoke_StationNotFound(t *testing.T) {
	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot)
	dir := t.TempDir()
	stations := filepath.Join(dir, "stations.csv")
	if err := os.WriteFile(stations, []byte("Id;Namn\n91;Stockholm\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(bin, "Nowhereville")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "STATIONS_FILE="+stations, "OUTPUT_DIR="+dir, "CHARTS=false")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected non-zero exit\n%s", out)
	}
	if !strings.Contains(string(out), "The station was not found") {
		t.Errorf("output missing diagnostic:\n%s", out)
	}
}

func startMosquitto(t *testing.T) (string, nat.Port) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mosquittoPort)},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort(mosquittoPort).WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, mosquittoPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, port
}

func upstream(name string, values ...string) string {
	var b strings.Builder
	b.WriteString("Stationsnamn;Stationsnummer;Stationsnät;Mäthöjd (meter över marken)\n")
	b.WriteString("Stockholm;91;SMHIs stationsnät;2.0\n\n")
	b.WriteString("Parameternamn;Beskrivning;Enhet\n")
	b.WriteString(name + ";momentanvärde, 1 gång/tim;-\n\n")
	b.WriteString("Tidsperiod (fr.o.m);Tidsperiod (t.o.m);Höjd (meter över havet);Latitud (decimalgrader);Longitud (decimalgrader)\n")
	b.WriteString("2023-01-01 00:00:00;2024-01-01 02:00:00;44.0;59.3;18.0\n\n")
	b.WriteString("Datum;Tid (UTC);" + name + ";Kvalitet;;Tidsutsnitt:\n")
	for i, v := range values {
		fmt.Fprintf(&b, "2024-01-01;%02d:00:00;%s;G\n", i, v)
	}
	return b.String()
}

func startSource(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/parameter/1/"):
			_, _ = io.WriteString(w, upstream("Lufttemperatur", "-3.2", "-3.5", "-3.0"))
		case strings.Contains(r.URL.Path, "/parameter/6/"):
			_, _ = io.WriteString(w, upstream("Relativ Luftfuktighet", "90", "91", "92"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

type inbox struct {
	mu   sync.Mutex
	msgs []telemetry
	ch   chan struct{}
}

func (b *inbox) wait(t *testing.T, n int, timeout time.Duration) []telemetry {
	t.Helper()
	deadline := time.After(timeout)
	for {
		b.mu.Lock()
		if len(b.msgs) >= n {
			out := append([]telemetry(nil), b.msgs...)
			b.mu.Unlock()
			return out
		}
		b.mu.Unlock()
		select {
		case <-b.ch:
		case <-deadline:
			b.mu.Lock()
			got := len(b.msgs)
			b.mu.Unlock()
			t.Fatalf("received %d telemetry messages, want %d", got, n)
		}
	}
}

func subscribe(t *testing.T, host string, port nat.Port, topic string) *inbox {
	t.Helper()
	box := &inbox{ch: make(chan struct{}, 16)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", host, port.Port()))
	opts.SetClientID("e2e-subscriber")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	t.Cleanup(func() { client.Disconnect(250) })

	token := client.Subscribe(topic, 1, func(_ mqtt.Client, m mqtt.Message) {
		var tm telemetry
		if err := json.Unmarshal(m.Payload(), &tm); err != nil {
			return
		}
		box.mu.Lock()
		box.msgs = append(box.msgs, tm)
		box.mu.Unlock()
		select {
		case box.ch <- struct{}{}:
		default:
		}
	})
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe %s: %v", topic, token.Error())
	}
	return box
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "metobs")
	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}
	return out
}
