package router

import (
	"database/sql"
	"net/http"

	mem "cattle-breeding-timeline/internal/adapters/storage/memory"
	pg "cattle-breeding-timeline/internal/adapters/storage/postgres"
	lite "cattle-breeding-timeline/internal/adapters/storage/sqlite"
	"cattle-breeding-timeline/internal/adapters/wallet/devwallet"
	"cattle-breeding-timeline/internal/domain/cattle"
	"cattle-breeding-timeline/internal/domain/timeline"
	"cattle-breeding-timeline/internal/middleware"
	"cattle-breeding-timeline/internal/platform/logger"
	"cattle-breeding-timeline/internal/ports/auth"
	"cattle-breeding-timeline/internal/ports/wallet"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Backend de persistencia. Exactamente uno:
	// - PostgresDB != nil => Postgres
	// - SQLiteDB != nil   => SQLite
	// - ambos nil         => in-memory
	PostgresDB *sql.DB
	SQLiteDB   *sql.DB

	// Wallet puede ser nil: se usa la billetera permisiva de dev.
	Wallet            wallet.Wallet
	CattleCreatePrice int

	// Logger puede ser nil: sin log de requests.
	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if opts.Logger != nil {
		r.Use(middleware.RequestLogger(opts.Logger))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		cattleRepo   cattle.Repository
		timelineRepo timeline.Repository
	)

	switch {
	case opts.PostgresDB != nil:
		cattleRepo = pg.NewCattleRepo(opts.PostgresDB)
		timelineRepo = pg.NewTimelineRepo(opts.PostgresDB)
	case opts.SQLiteDB != nil:
		cattleRepo = lite.NewCattleRepo(opts.SQLiteDB)
		timelineRepo = lite.NewTimelineRepo(opts.SQLiteDB)
	default:
		cattleRepo = mem.NewCattleRepo()
		timelineRepo = mem.NewTimelineRepo()
	}

	w := opts.Wallet
	if w == nil {
		w = devwallet.New()
	}

	// Services por módulo
	cattleSvc := cattle.NewService(cattleRepo, w, opts.CattleCreatePrice)
	timelineSvc := timeline.NewService(timelineRepo)

	// Rutas por módulo
	cattle.RegisterRoutes(r, cattleSvc)
	timeline.RegisterRoutes(r, timelineSvc, cattleSvc)

	return r
}
