package server

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"rssagg/aggregator"
	"rssagg/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type ServerConfig struct {

	// The aggregator owning the store and the feeds
	Aggregator *aggregator.Aggregator

	// Broadcast channels to pass store notifications to SSE clients
	Broadcaster *Broadcaster

	// Origins allowed to call the API from a browser, empty disables CORS
	AllowOrigins string

	// Interval between keep-alive pings on the event stream
	PingInterval time.Duration
}

type postView struct {
	models.Post
	Seen bool `json:"seen"`
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	Form           models.Form           `json:"form"`
	LoadingProcess models.LoadingProcess `json:"loadingProcess"`
}

type stateView struct {
	models.State
	SeenPosts []string `json:"seenPosts"`
}

func postViews(state *models.State) []postView {
	views := make([]postView, 0, len(state.Posts))
	for _, post := range state.Posts {
		views = append(views, postView{Post: post, Seen: state.UI.Seen(post.ID)})
	}
	return views
}

// Returns a fiber.App instance serving the aggregator state over HTTP
func Server(config *ServerConfig) *fiber.App {

	agg := config.Aggregator
	bc := config.Broadcaster
	s := agg.Store()

	pingInterval := config.PingInterval
	if pingInterval <= 0 {
		pingInterval = 5 * time.Second
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     config.AllowOrigins,
			AllowHeaders:     "Cache-Control, Content-Type",
			AllowCredentials: true,
		}))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/state", func(c *fiber.Ctx) error {
		state := s.Snapshot()
		return c.JSON(stateView{State: state, SeenPosts: state.SeenPostIDs()})
	})

	api.Get("/feeds", func(c *fiber.Ctx) error {
		state := s.Snapshot()
		return c.JSON(state.Feeds)
	})

	api.Get("/posts", func(c *fiber.Ctx) error {
		state := s.Snapshot()
		return c.JSON(postViews(&state))
	})

	api.Post("/feeds", func(c *fiber.Ctx) error {
		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid request body")
		}

		err := agg.Submit(c.UserContext(), req.URL)

		state := s.Snapshot()
		res := submitResponse{Form: state.Form, LoadingProcess: state.LoadingProcess}

		var validationErr *aggregator.ValidationError
		switch {
		case err == nil:
			return c.Status(fiber.StatusCreated).JSON(res)
		case errors.As(err, &validationErr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
		default:
			log.WithFields(log.Fields{
				"url":   req.URL,
				"kind":  aggregator.Classify(err),
				"error": err,
			}).Warn("Error loading submitted feed")
			return c.Status(fiber.StatusBadGateway).JSON(res)
		}
	})

	api.Post("/posts/:id/open", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := agg.OpenPost(id); err != nil {
			if errors.Is(err, aggregator.ErrUnknownPost) {
				return c.Status(fiber.StatusNotFound).SendString("Unknown post")
			}
			return err
		}

		state := s.Snapshot()
		return c.JSON(state.Modal)
	})

	app.Delete("/events", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(fiber.StatusOK).SendString("OK")
	})

	app.Get("/events", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		events := make(chan Event, 32)
		alive := time.NewTicker(pingInterval)

		bc.AddClient(key, events)

		cleanup := func() {
			alive.Stop()
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						log.Debugf("Event channel closed for client %s", key)
						return
					}
					if err := writeEvent(w, event); err != nil {
						log.Warnf("Failed to send %s event to client %s: %v", event.Path, key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}

func writeEvent(w *bufio.Writer, event Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Path, event.Data); err != nil {
		return err
	}
	return w.Flush()
}
