package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/face_tracker/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// frameCache keeps the latest frame and link status seen on MQTT.
type frameCache struct {
	mu        sync.RWMutex
	last      FrameMessage
	haveFrame bool
	status    StatusMessage
}

func (c *frameCache) setFrame(m FrameMessage) {
	c.mu.Lock()
	c.last = m
	c.haveFrame = true
	c.mu.Unlock()
}

func (c *frameCache) setStatus(s StatusMessage) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *frameCache) frame() (FrameMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.haveFrame
}

func (c *frameCache) linkStatus() StatusMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func RunWeb(cfg *config.Config) error {
	cache := &frameCache{}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client, err := connectMQTT(opts)
	if err != nil {
		return err
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to frame and status topics
	if err := subscribe(client, cfg.TopicFrame, func(_ mqtt.Client, msg mqtt.Message) {
		var m FrameMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("web: frame unmarshal error: %v", err)
			return
		}
		cache.setFrame(m)
	}); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		var s StatusMessage
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: status unmarshal error: %v", err)
			return
		}
		cache.setStatus(s)
	}); err != nil {
		return err
	}
	log.Printf("web: subscribed to %s and %s", cfg.TopicFrame, cfg.TopicStatus)

	mux := newWebMux(cache, time.Duration(cfg.ServoUpdateInterval)*time.Millisecond)

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// newWebMux serves the JSON API and the websocket stream.
func newWebMux(cache *frameCache, streamInterval time.Duration) *http.ServeMux {
	mux := http.NewServeMux()

	// latest frame
	mux.HandleFunc("/api/frame", func(w http.ResponseWriter, r *http.Request) {
		m, ok := cache.frame()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// link status
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(cache.linkStatus()); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		streamFrames(w, r, cache, streamInterval)
	})

	return mux
}

// streamFrames pushes every new frame to one websocket client until it
// goes away.
func streamFrames(w http.ResponseWriter, r *http.Request, cache *frameCache, interval time.Duration) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// reader goroutine notices the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-gone:
			return
		case <-ticker.C:
			m, ok := cache.frame()
			if !ok || m.Seq == sent {
				continue
			}
			if err := conn.WriteJSON(m); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
			sent = m.Seq
		}
	}
}
