package bot

import (
	"context"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/domain"
	"github.com/tbourn/go-corona-bot/internal/identity"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/report"
	"github.com/tbourn/go-corona-bot/internal/services"
)

// Fixed command tokens.
const (
	CmdUpdate        = "update"
	CmdStart         = "start"
	CmdStop          = "stop"
	CmdRisikogebiete = "risikogebiete"
	CmdHelp          = "help"
)

// Route kinds, also used as metric labels.
const (
	KindFixed  = "fixed"
	KindArea   = "area"
	KindRegion = "region"
)

var fixedCommands = []string{CmdUpdate, CmdStart, CmdStop, CmdRisikogebiete, CmdHelp}

var commands = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coronabot_commands_total",
		Help: "Dispatched chat commands by route kind or outcome.",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(commands)
}

// Config wires the services the commands answer from.
type Config struct {
	Reporter      *services.Reporter
	Subscriptions *services.SubscriptionService
	BotName       string
}

// Load reads the stored regions and builds the router.
func Load(ctx context.Context, db *gorm.DB, cfg Config) (*Router, error) {
	regions, err := repo.ListRegions(ctx, db)
	if err != nil {
		return nil, err
	}
	return NewRouter(cfg, regions), nil
}

// NewRouter registers the fixed commands, one route per area and one per
// region. Colliding tokens are logged and skipped; see Router.Conflicts.
func NewRouter(cfg Config, regions []domain.Region) *Router {
	r := newRouter(cfg.BotName)
	h := handlers{cfg: cfg}

	areaSet := make(map[string]struct{})
	for _, reg := range regions {
		areaSet[reg.Area] = struct{}{}
	}
	areas := make([]string, 0, len(areaSet))
	for a := range areaSet {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	h.areas, h.regions = len(areas), len(regions)

	must := func(err error) {
		if err != nil {
			log.Warn().Err(err).Msg("skipping command route")
		}
	}
	must(r.Register(CmdUpdate, KindFixed, h.update))
	must(r.Register(CmdStart, KindFixed, h.start))
	must(r.Register(CmdStop, KindFixed, h.stop))
	must(r.Register(CmdRisikogebiete, KindFixed, h.risk))
	must(r.Register(CmdHelp, KindFixed, h.help))
	r.markWrites(CmdStart, CmdStop)

	for _, a := range areas {
		must(r.Register(identity.AreaToken(a), KindArea, h.area(a)))
	}
	for _, reg := range regions {
		must(r.Register(identity.RegionToken(reg.Name), KindRegion, h.region(reg.ID)))
	}
	r.freeze()

	log.Info().
		Int("areas", len(areas)).
		Int("regions", len(regions)).
		Int("conflicts", len(r.conflicts)).
		Msg("command routes registered")
	return r
}

type handlers struct {
	cfg     Config
	areas   int
	regions int
}

func (h handlers) update(ctx context.Context, _ Request) (string, error) {
	s, err := h.cfg.Reporter.Summarize(ctx, h.cfg.Reporter.Today())
	if err != nil {
		return "", err
	}
	return report.FormatSummary(s), nil
}

func (h handlers) start(ctx context.Context, req Request) (string, error) {
	if err := h.cfg.Subscriptions.Subscribe(ctx, req.ChatID); err != nil {
		return "", err
	}
	return report.Escape("Du bekommst ab jetzt jeden Morgen die aktuellen Fallzahlen. Abmelden mit /stop."), nil
}

func (h handlers) stop(ctx context.Context, req Request) (string, error) {
	if err := h.cfg.Subscriptions.Unsubscribe(ctx, req.ChatID); err != nil {
		return "", err
	}
	return report.Escape("Du bekommst keine täglichen Fallzahlen mehr. Wieder anmelden mit /start."), nil
}

func (h handlers) risk(ctx context.Context, _ Request) (string, error) {
	today := h.cfg.Reporter.Today()
	list, err := h.cfg.Reporter.RiskAreas(ctx, today)
	if err != nil {
		return "", err
	}
	return report.FormatRiskAreas(today, list), nil
}

func (h handlers) help(context.Context, Request) (string, error) {
	return report.FormatHelp(fixedCommands, h.areas, h.regions), nil
}

func (h handlers) area(name string) HandlerFunc {
	return func(ctx context.Context, _ Request) (string, error) {
		s, err := h.cfg.Reporter.SummarizeArea(ctx, h.cfg.Reporter.Today(), name)
		if err != nil {
			return "", err
		}
		return report.FormatAreaSummary(s), nil
	}
}

func (h handlers) region(id int64) HandlerFunc {
	return func(ctx context.Context, _ Request) (string, error) {
		hist, err := h.cfg.Reporter.RegionHistoryByID(ctx, id)
		if err != nil {
			return "", err
		}
		return report.FormatHistory(hist), nil
	}
}
