package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/fornellas/slogxt/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
	"github.com/sixdof/armctl/wire"
)

var listenAddress string
var defaultListenAddress = "127.0.0.1:9999"

type statusResponse struct {
	Connected    bool   `json:"connected"`
	QueueLen     int    `json:"queue_len"`
	RecordingLen int    `json:"recording_len"`
	LastMessage  string `json:"last_message,omitempty"`
}

type monitorServer struct {
	client   *arm.Client
	upgrader websocket.Upgrader
}

func (s *monitorServer) status(w http.ResponseWriter, req *http.Request) {
	status := statusResponse{
		Connected:    s.client.Connected(),
		QueueLen:     s.client.QueueLen(),
		RecordingLen: s.client.RecordingLen(),
	}
	if last := s.client.LastMessage(); last != nil {
		status.LastMessage = last.String()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logger := log.MustLogger(req.Context())
		logger.Error("Failed to encode status", "err", err)
	}
}

func (s *monitorServer) command(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	command, err := wire.Decode(string(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.client.SendImmediate(command); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *monitorServer) stop(w http.ResponseWriter, req *http.Request) {
	if err := s.client.EmergencyStop(); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// messages streams every inbound device line over a websocket, one text
// message per line.
func (s *monitorServer) messages(w http.ResponseWriter, req *http.Request) {
	logger := log.MustLogger(req.Context())

	ws, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Error("Failed to upgrade", "err", err)
		return
	}
	defer ws.Close()

	name := fmt.Sprintf("ws-%s", req.RemoteAddr)
	messageCh := s.client.SubscribeMessages(name, 100)
	defer s.client.UnsubscribeMessages(name)

	for message := range messageCh {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(message.String())); err != nil {
			logger.Warn("Failed to write, dropping subscriber", "err", err)
			return
		}
	}
}

func (s *monitorServer) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/status", s.status).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/command", s.command).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/stop", s.stop).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/messages", s.messages).Methods(http.MethodGet)
	return router
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP monitor bridged to the arm controller.",
	Long:  "Connects to the arm controller and exposes it over HTTP: immediate commands, emergency stop, status and a websocket feed of inbound messages. There's NO security implemented, this can only be used in secure networks at your own risk.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"listen-address", listenAddress,
		)
		cmd.SetContext(ctx)

		return WithClient(cmd, func(client *arm.Client) error {
			server := &monitorServer{
				client: client,
				upgrader: websocket.Upgrader{
					// Monitoring runs on trusted networks only, any origin goes.
					CheckOrigin: func(*http.Request) bool { return true },
				},
			}

			httpServer := &http.Server{
				Addr:    listenAddress,
				Handler: server.router(),
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			}

			logger.Info("Listening")
			return httpServer.ListenAndServe()
		})
	}),
}

func init() {
	AddClientFlags(ServeCmd)
	ServeCmd.PersistentFlags().StringVar(&listenAddress, "listen-address", defaultListenAddress, "TCP address to listen on (host:port)")

	RootCmd.AddCommand(ServeCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		listenAddress = defaultListenAddress
	})
}
