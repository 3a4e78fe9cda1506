// Command hostsim stands in for the host process during development. It
// serves discovery, the bridge socket and the flag asset, and reads host
// events from stdin:
//
//	phase <name>
//	historic on <id> [name]
//	historic off
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/httpapi"
	"github.com/DoyleJ11/historic-flag-overlay/internal/hub"
	"github.com/DoyleJ11/historic-flag-overlay/internal/logging"
	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

func main() {
	port := flag.Int("port", 50000, "port to listen on")
	level := flag.String("log-level", "debug", "log level")
	flag.Parse()

	log := logging.NewConsole(*level).Named("hostsim")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx)
	srv := &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", strconv.Itoa(*port)),
		Handler:           httpapi.SetupRoutes(h, *port, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go readCommands(ctx, os.Stdin, h, log)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve", zap.Error(err))
	}
}

func readCommands(ctx context.Context, r io.Reader, h *hub.Hub, log *zap.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		msg, err := parseCommand(sc.Text())
		if err != nil {
			log.Warn("bad command", zap.String("line", sc.Text()), zap.Error(err))
			continue
		}
		if msg == nil {
			continue
		}
		select {
		case h.Inbox() <- msg:
		case <-h.Done():
			return
		}
	}
}

// parseCommand returns nil for blank lines.
func parseCommand(line string) (hub.HubMsg, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	switch fields[0] {
	case "phase":
		if len(fields) != 2 {
			return nil, errors.New("usage: phase <name>")
		}
		return hub.SetPhase{Phase: fields[1]}, nil

	case "historic":
		if len(fields) >= 3 && fields[1] == "on" {
			id, err := json.Marshal(fields[2])
			if err != nil {
				return nil, err
			}
			if _, err := strconv.Atoi(fields[2]); err == nil {
				id = []byte(fields[2])
			}
			st := types.HistoricState{Active: true, HistoricSkinID: id}
			if len(fields) > 3 {
				name := strings.Join(fields[3:], " ")
				st.HistoricSkinName = &name
			}
			return hub.SetHistoric{State: st}, nil
		}
		if len(fields) == 2 && fields[1] == "off" {
			return hub.SetHistoric{State: types.HistoricState{Active: false}}, nil
		}
		return nil, errors.New("usage: historic on <id> [name] | historic off")
	}
	return nil, fmt.Errorf("unknown command %q", fields[0])
}
