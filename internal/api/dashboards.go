package api

import (
	"sync"

	"github.com/factchecker/veritas/internal/analysis"
	"github.com/factchecker/veritas/internal/auth"
	"github.com/factchecker/veritas/internal/models"
)

const anonymousDashboard = "anonymous"

// dashboards gives each session its own single-flight controller. An entry
// lives as long as its session.
type dashboards struct {
	orch     *analysis.Orchestrator
	sessions *auth.Manager

	mu     sync.Mutex
	byUser map[string]*analysis.Dashboard
}

func newDashboards(orch *analysis.Orchestrator, sessions *auth.Manager) *dashboards {
	d := &dashboards{
		orch:     orch,
		sessions: sessions,
		byUser:   make(map[string]*analysis.Dashboard),
	}
	sessions.OnEnd(d.drop)
	return d
}

func dashboardKey(s *models.Session) string {
	if s == nil {
		return anonymousDashboard
	}
	return "session:" + s.Token
}

func (d *dashboards) get(s *models.Session) *analysis.Dashboard {
	key := dashboardKey(s)

	d.mu.Lock()
	defer d.mu.Unlock()
	if dash, ok := d.byUser[key]; ok {
		return dash
	}

	dash := analysis.NewDashboard(d.orch)
	// A session that ended mid-request gets a throwaway dashboard.
	if s != nil {
		if _, live := d.sessions.Lookup(s.Token); !live {
			return dash
		}
	}
	d.byUser[key] = dash
	return dash
}

// drop abandons and forgets the dashboard of an ended session.
func (d *dashboards) drop(s *models.Session) {
	key := dashboardKey(s)

	d.mu.Lock()
	dash, ok := d.byUser[key]
	delete(d.byUser, key)
	d.mu.Unlock()

	if ok {
		dash.Abandon()
	}
}

func (d *dashboards) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byUser)
}
