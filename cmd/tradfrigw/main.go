package main

import (
	"context"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"
	"lib.hemtjan.st/transport/mqtt"

	"hemtjan.st/tradfrigw"
	"hemtjan.st/tradfrigw/config"
	"hemtjan.st/tradfrigw/tradfri"
)

func main() {
	cfgPath := flag.String("config", "", "path to the YAML configuration file")
	mqCfg := mqtt.MustFlags(flag.String, flag.Bool)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = cfg.Logging.LogLevel()
	log := lf.NewLogger("main")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gw, err := connect(ctx, cfg.Gateway, lf, log)
	if err != nil {
		log.Errorf("connecting to gateway: %v", err)
		os.Exit(1)
	}
	defer gw.Close()

	log.Info("Connecting to MQTT")
	tr, err := mqtt.New(ctx, mqCfg())
	if err != nil {
		log.Errorf("connecting to MQTT: %v", err)
		os.Exit(1)
	}
	go func() {
		for {
			ok, err := tr.Start()
			if !ok {
				break
			}
			log.Warnf("MQTT error, retrying in 5 seconds: %v", err)
			time.Sleep(5 * time.Second)
		}
		cancel()
	}()

	br := tradfrigw.NewBridge(gw, tr, tradfrigw.Config{
		SkipGroups:    cfg.Bridge.SkipGroups,
		SkipBulbs:     cfg.Bridge.SkipBulbs,
		Observe:       cfg.Bridge.Observe,
		LoggerFactory: lf,
	})

	if cfg.HTTP.Address != "" {
		go serveStatus(ctx, cfg.HTTP.Address, br, log)
	}

	if err := br.Start(ctx); err != nil {
		log.Errorf("bridge: %v", err)
		os.Exit(1)
	}
}

// connect pairs with the security code unless a key is configured, and
// discovers the gateway when no address is.
func connect(ctx context.Context, g config.GatewayConfig, lf logging.LoggerFactory, log logging.LeveledLogger) (*tradfri.Connected, error) {
	addr := g.Address
	if addr == "" {
		log.Info("Discovering gateway")
		var err error
		addr, err = tradfri.Discover(ctx, tradfri.DiscoveryConfig{
			Timeout:       g.GetDiscoveryTimeout(),
			LoggerFactory: lf,
		})
		if err != nil {
			return nil, err
		}
		log.Infof("Found gateway at %s", addr)
	}

	tcfg := tradfri.Config{
		AuthTimeout:    g.GetAuthTimeout(),
		RequestTimeout: g.GetRequestTimeout(),
		LoggerFactory:  lf,
	}
	if g.HasCredentials() {
		creds := tradfri.Credentials{Identifier: g.Identity, PSK: g.PSK}
		return tradfri.NewWithCredentials(addr, creds, tcfg).Connect(ctx)
	}

	c, err := tradfri.NewWithCode(addr, g.Code, tcfg).Connect(ctx)
	if err != nil {
		return nil, err
	}
	creds := c.Credentials()
	log.Warnf("Paired as %s; set TRADFRIGW_GATEWAY_IDENTITY and TRADFRIGW_GATEWAY_PSK to reuse the key issued for it", creds.Identifier)
	fmt.Fprintf(os.Stderr, "TRADFRIGW_GATEWAY_IDENTITY=%s\nTRADFRIGW_GATEWAY_PSK=%s\n", creds.Identifier, creds.PSK)
	return c, nil
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head><title>tradfrigw</title></head>
<body>
<table>
<tr><th>Topic</th><th>Name</th><th>Type</th><th>State</th></tr>
{{range .}}<tr><td>{{.Topic}}</td><td>{{.Name}}</td><td>{{.Type}}</td>
<td>{{range $k, $v := .Features}}{{$k}}={{$v}} {{end}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func serveStatus(ctx context.Context, addr string, br *tradfrigw.Bridge, log logging.LeveledLogger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if err := statusTemplate.Execute(w, br.Status()); err != nil {
			log.Warnf("rendering status: %v", err)
		}
	})
	h := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = h.Close()
	}()
	if err := h.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorf("status server: %v", err)
	}
}
