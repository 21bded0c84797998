// internal/server/gateway.go
// WebSocket connection handling and the room-replica control-message bridge

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/config"
	"github.com/leoherzog/seedless-sub001/internal/kv"
	"github.com/leoherzog/seedless-sub001/internal/models"
	"github.com/leoherzog/seedless-sub001/internal/peerchannel"
	"github.com/leoherzog/seedless-sub001/internal/persistence"
	"github.com/leoherzog/seedless-sub001/internal/room"
	"github.com/leoherzog/seedless-sub001/internal/store"
	"github.com/leoherzog/seedless-sub001/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS on the preceding HTTP handshake already scopes browsers to
		// cfg.Server.FrontendURL; non-browser peers (tests, CLIs) have no
		// Origin header to check against.
		return true
	},
}

// Gateway owns the process-wide KVStore and WebSocketHub every connected
// replica shares; it is the single process-level object the teacher's
// Hub occupied, generalized from a tournament-update fan-out bus to the
// full sync-protocol transport (internal/peerchannel.WebSocketHub) plus
// persistence backend selection.
type Gateway struct {
	cfg         *config.Config
	hub         *peerchannel.WebSocketHub
	kv          kv.Store
	logger      *log.Logger
	stopCleanup chan struct{}
}

// cleanupInterval is how often the startup garbage collector re-sweeps the
// shared KVStore for expired room snapshots, independent of how long a
// snapshot is allowed to live (cfg.Room.RetentionDays).
const cleanupInterval = 24 * time.Hour

// NewGateway constructs the KVStore named by cfg.Storage.KVBackend and the
// shared WebSocket hub, then starts the retention sweep spec.md §3's
// Lifecycle requires ("Rooms older than a configurable retention period...
// are garbage-collected at startup") against a single process-wide
// persistence.Adapter — distinct from the per-connection adapters
// HandleWebSocket builds for local-user-id/admin-token namespacing, since
// cleanup needs no per-user key prefix.
func NewGateway(cfg *config.Config, logger *log.Logger) (*Gateway, error) {
	backend, err := buildKVStore(cfg)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		cfg:         cfg,
		hub:         peerchannel.NewWebSocketHub(logger),
		kv:          backend,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	gc := persistence.NewAdapter(
		backend,
		cfg.Storage.KeyPrefix,
		time.Duration(cfg.Room.RetentionDays)*24*time.Hour,
		time.Duration(cfg.Room.PersistDebounceMs)*time.Millisecond,
		signingSecret(cfg),
		logger,
	)
	gc.RunPeriodicCleanup(cleanupInterval, g.stopCleanup)

	return g, nil
}

// Shutdown stops the background retention sweep.
func (g *Gateway) Shutdown() {
	close(g.stopCleanup)
}

func buildKVStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.KVBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		return kv.NewRedisStore(client), nil
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Storage.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("server: mongo connect: %w", err)
		}
		return kv.NewMongoStore(client.Database(cfg.Storage.MongoDatabase), "rooms"), nil
	default:
		return kv.NewMemoryStore(), nil
	}
}

// HealthCheck reports liveness, mirroring the teacher's api.HealthCheck.
func (g *Gateway) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"environment": g.cfg.Environment,
	})
}

// HandleWebSocket upgrades the connection and attaches a fresh
// room.Replica to it: one replica per browser tab, exactly as spec.md §6
// models the embedding UI, with this gateway process standing in for every
// other replica's PeerChannel peer.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	roomID := strings.TrimSpace(c.Query("room"))
	displayName := strings.TrimSpace(c.Query("name"))
	externalUser := strings.TrimSpace(c.Query("user"))
	action := c.Query("action")

	if roomID == "" || displayName == "" || externalUser == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room, user, and name query parameters are required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Printf("server: websocket upgrade failed: %v", err)
		return
	}

	peerID := utils.GenerateUUID()
	client := peerchannel.NewWebSocketClient(g.hub, conn, roomID, peerID, g.logger)

	// Namespacing the persistence.Adapter's key prefix by the browser-supplied
	// external identity isolates each simulated "endpoint"'s local-user-id and
	// admin-token keys the way a real per-browser localStorage instance would;
	// the shared kv.Store backend still lets every replica in a room read the
	// same room snapshot for the persistence-Load head start in room.JoinRoom.
	persist := persistence.NewAdapter(
		g.kv,
		g.cfg.Storage.KeyPrefix+"u:"+externalUser+":",
		time.Duration(g.cfg.Room.RetentionDays)*24*time.Hour,
		time.Duration(g.cfg.Room.PersistDebounceMs)*time.Millisecond,
		signingSecret(g.cfg),
		g.logger,
	)

	var replica *room.Replica
	if action == "create" {
		tournamentType := models.TournamentType(c.Query("type"))
		roomName := c.Query("roomName")
		if roomName == "" {
			roomName = roomID
		}
		replica, err = room.CreateRoom(client, persist, g.logger, roomID, roomName, displayName, tournamentType)
	} else {
		replica, err = room.JoinRoom(client, persist, g.logger, roomID, displayName)
	}
	if err != nil {
		g.logger.Printf("server: room setup failed room=%s: %v", roomID, err)
		client.Leave()
		return
	}

	if replica.IsAdmin() {
		replica.StartHeartbeat(time.Duration(g.cfg.Room.HeartbeatMs) * time.Millisecond)
	}

	pushState := func(interface{}) {
		client.PushUI(encodeFrame("state", replica.Snapshot()))
	}
	unsubscribe := replica.Document().Subscribe(store.EventChange, pushState)
	pushState(nil)

	client.OnUIMessage(func(raw []byte) {
		g.dispatchControl(replica, client, raw)
	})
	client.OnClose(func() {
		unsubscribe()
		if err := replica.Leave(); err != nil {
			g.logger.Printf("server: replica leave room=%s user=%s: %v", roomID, replica.LocalUserID(), err)
		}
	})
}

func signingSecret(cfg *config.Config) []byte {
	if cfg.Admin.TokenSigningSecret == "" {
		return nil
	}
	return []byte(cfg.Admin.TokenSigningSecret)
}

// frame is the envelope every message pushed to the browser carries: a
// discriminator plus an opaque payload, mirroring the teacher's
// websocket.Message {type, data} shape (internal/websocket/hub.go).
type frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func encodeFrame(frameType string, data interface{}) []byte {
	out, err := json.Marshal(frame{Type: frameType, Data: data})
	if err != nil {
		return []byte(`{"type":"error","data":{"error":"encode failure"}}`)
	}
	return out
}

// controlMessage is the shape of every frame the browser sends back over
// the same socket: one of the control-surface operations from spec.md §6,
// named by op. There is no dedicated wire format for this in spec.md (the
// sync protocol's 12 message codes are peer-to-peer actions, not
// UI-to-replica commands), so this bridge format is this gateway's own.
type controlMessage struct {
	Op string `json:"op"`

	Name string `json:"name,omitempty"`

	ParticipantID string `json:"participantId,omitempty"`
	TeamID        string `json:"teamId,omitempty"`

	OrderedParticipantIDs []string `json:"orderedParticipantIds,omitempty"`

	Config json.RawMessage `json:"config,omitempty"`

	MatchID  string `json:"matchId,omitempty"`
	Scores   [2]int `json:"scores,omitempty"`
	WinnerID string `json:"winnerId,omitempty"`

	GameID  string   `json:"gameId,omitempty"`
	Results []string `json:"results,omitempty"`
}

func (g *Gateway) dispatchControl(r *room.Replica, client *peerchannel.WebSocketClient, raw []byte) {
	var msg controlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.PushUI(encodeFrame("error", gin.H{"error": "malformed control message"}))
		return
	}

	var opErr error
	switch msg.Op {
	case "addParticipant":
		_, opErr = r.AddParticipant(msg.Name)
	case "removeParticipant":
		opErr = r.RemoveParticipant(msg.ParticipantID)
	case "applyManualSeeding":
		opErr = r.ApplyManualSeeding(msg.OrderedParticipantIDs)
	case "assignTeam":
		opErr = r.AssignTeam(msg.ParticipantID, msg.TeamID)
	case "startTournament":
		var cfg models.Config
		if err := json.Unmarshal(msg.Config, &cfg); err != nil {
			opErr = fmt.Errorf("invalid config: %w", err)
			break
		}
		opErr = r.StartTournament(cfg)
	case "resetTournament":
		opErr = r.ResetTournament()
	case "reportMatchResult":
		opErr = r.ReportMatchResult(msg.MatchID, msg.Scores, msg.WinnerID)
	case "verifyMatchResult":
		opErr = r.VerifyMatchResult(msg.MatchID)
	case "reportRaceResult":
		opErr = r.ReportRaceResult(msg.GameID, msg.Results)
	case "leave":
		opErr = r.Leave()
	default:
		opErr = fmt.Errorf("unknown op %q", msg.Op)
	}

	if opErr != nil {
		client.PushUI(encodeFrame("error", gin.H{"op": msg.Op, "error": opErr.Error()}))
	}
}
