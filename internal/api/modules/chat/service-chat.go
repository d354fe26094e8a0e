package chat_module

import (
	"fmt"
	"log"

	"github.com/ethanbaker/tabletalk/internal/binding"
	"github.com/ethanbaker/tabletalk/internal/chat"
	"github.com/ethanbaker/tabletalk/internal/metrics"
	"github.com/ethanbaker/tabletalk/internal/stores/session"
	"github.com/ethanbaker/tabletalk/internal/stores/transcript"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
)

// ChatModule owns the chat service and the resources behind it
type ChatModule struct {
	service *chat.Service
	sweeper *session.Sweeper
	archive transcript.Archive
}

var module *ChatModule

/** ---- INIT ---- */

// Init builds the chat service from configuration and starts the session
// sweeper
func Init(cfg *utils.Config, m *metrics.Metrics) error {
	factory, err := binding.NewFactory(cfg)
	if err != nil {
		return err
	}
	factory.
		WithAgentConfig(binding.KindData, agent.LoadAgentConfig("data")).
		WithAgentConfig(binding.KindSearch, agent.LoadAgentConfig("search"))

	// Session store reports evictions to metrics
	var store *session.Store
	opts := session.OptionsFromConfig(cfg)
	opts.OnEvict = func(id string, reason session.EvictReason) {
		m.SessionEvicted(string(reason))
		m.SetSessions(store.Len())
	}
	store = session.NewStore(opts)

	sweeper, err := session.NewSweeper(store, cfg.GetWithDefault("SESSION_SWEEP_SCHEDULE", session.DefaultSweepSchedule))
	if err != nil {
		return err
	}

	archive, err := transcript.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open transcript archive: %w", err)
	}

	service := chat.NewService(factory, store, chat.OptionsFromConfig(cfg)).
		WithArchive(archive).
		WithMetrics(m)

	sweeper.Start()
	log.Printf("[CHAT]: Session store ready (capacity %d, ttl %s)", store.Capacity(), opts.TTL)
	if archive == nil {
		log.Printf("[ARCHIVE]: Transcript archive disabled")
	}

	module = &ChatModule{
		service: service,
		sweeper: sweeper,
		archive: archive,
	}
	return nil
}

// Use installs an already built service
func Use(service *chat.Service) {
	module = &ChatModule{service: service, archive: service.Archive()}
}

// Return the chat service instance
func GetService() *chat.Service {
	if module == nil {
		log.Fatal("[CHAT]: Chat service is not initialized")
	}
	return module.service
}

// Shutdown stops the sweeper and closes the archive
func Shutdown() {
	if module == nil {
		return
	}

	if module.sweeper != nil {
		module.sweeper.Stop()
	}
	if module.archive != nil {
		if err := module.archive.Close(); err != nil {
			log.Printf("[ARCHIVE]: Failed to close archive: %v", err)
		}
	}
}
