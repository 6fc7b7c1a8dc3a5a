// Package rpcapi exposes the registry's query surface over HTTP: per-node
// status, the three tracker listings, the next payee of each tier, counts
// and the administrative rebuild trigger.
package rpcapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/MotoAcidic/fluxd/registry"
)

// Service serves the registry's read-only query surface, plus the
// administrative rebuild endpoint, over plain HTTP+JSON.
type Service struct {
	sync.Mutex

	bindAddress string
	registry    *registry.Registry
	router      *mux.Router
	logger      *logrus.Entry
}

// NewService builds a Service bound to reg and registers its routes.
func NewService(bindAddress string, reg *registry.Registry, logger *logrus.Entry) *Service {
	s := &Service{
		bindAddress: bindAddress,
		registry:    reg,
		router:      mux.NewRouter(),
		logger:      logger,
	}
	s.registerHandlers()
	return s
}

// registerHandlers wires every route to its handler; path parameters carry
// the outpoint, tier or height for the endpoints that address one.
func (s *Service) registerHandlers() {
	s.logger.Debug("registering registry API handlers")
	s.router.HandleFunc("/status/{outpoint}", s.makeHandler(s.GetStatus)).Methods("GET")
	s.router.HandleFunc("/list", s.makeHandler(s.GetConfirmedList)).Methods("GET")
	s.router.HandleFunc("/list/{tier}", s.makeHandler(s.GetConfirmedList)).Methods("GET")
	s.router.HandleFunc("/startlist", s.makeHandler(s.GetStartList)).Methods("GET")
	s.router.HandleFunc("/doslist", s.makeHandler(s.GetDoSList)).Methods("GET")
	s.router.HandleFunc("/count", s.makeHandler(s.GetCount)).Methods("GET")
	s.router.HandleFunc("/winners", s.makeHandler(s.GetWinners)).Methods("GET")
	s.router.HandleFunc("/tip", s.makeHandler(s.GetTip)).Methods("GET")
	s.router.HandleFunc("/rebuild/{height}", s.makeHandler(s.PostRebuild)).Methods("POST")
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/json")

		fn(w, r)
	}
}

// Serve calls ListenAndServe against the Service's own router. Blocking.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Info("serving registry API")
	if err := http.ListenAndServe(s.bindAddress, s.router); err != nil {
		s.logger.WithError(err).Error("registry API server exited")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorView{Error: err.Error()})
}

func parseOutpoint(raw string) (registry.Outpoint, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return registry.Outpoint{}, registry.NewError(registry.NotApplicable, "outpoint must be txid:vout", raw)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return registry.Outpoint{}, err
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return registry.Outpoint{}, err
	}
	return registry.NewOutpoint(*hash, uint32(vout)), nil
}

func trackerName(k registry.TrackerKind) string {
	switch k {
	case registry.InStart:
		return "start"
	case registry.InDoS:
		return "dos"
	case registry.InConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// GetStatus reports which tracker, if any, an outpoint occupies.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	o, err := parseOutpoint(mux.Vars(r)["outpoint"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, rec := s.registry.Status(o)
	view := StatusView{Tracker: trackerName(kind)}
	if rec != nil {
		nv := newNodeView(rec)
		view.Node = &nv
	}
	json.NewEncoder(w).Encode(view)
}

func tierByName(name string) (registry.Tier, bool) {
	switch strings.ToUpper(name) {
	case "CUMULUS":
		return registry.Cumulus, true
	case "NIMBUS":
		return registry.Nimbus, true
	case "STRATUS":
		return registry.Stratus, true
	case "":
		return registry.Invalid, true
	default:
		return registry.Invalid, false
	}
}

// GetConfirmedList lists confirmed nodes, optionally filtered to one tier.
func (s *Service) GetConfirmedList(w http.ResponseWriter, r *http.Request) {
	tier, ok := tierByName(mux.Vars(r)["tier"])
	if !ok {
		writeError(w, http.StatusBadRequest, registry.NewError(registry.NotApplicable, "unknown tier", mux.Vars(r)["tier"]))
		return
	}
	recs := s.registry.ConfirmedList(tier)
	out := make([]NodeView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newNodeView(rec))
	}
	json.NewEncoder(w).Encode(out)
}

// GetStartList lists every record currently in the Start tracker.
func (s *Service) GetStartList(w http.ResponseWriter, r *http.Request) {
	recs := s.registry.StartList()
	out := make([]NodeView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newNodeView(rec))
	}
	json.NewEncoder(w).Encode(out)
}

// GetDoSList lists every record currently in the DoS tracker.
func (s *Service) GetDoSList(w http.ResponseWriter, r *http.Request) {
	recs := s.registry.DoSList()
	out := make([]NodeView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newNodeView(rec))
	}
	json.NewEncoder(w).Encode(out)
}

// GetCount reports the count() query: totals, per-tier breakdown, and
// network-type distribution.
func (s *Service) GetCount(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(newCountView(s.registry.CountNodes()))
}

// GetWinners reports the next payee queued in each tier.
func (s *Service) GetWinners(w http.ResponseWriter, r *http.Request) {
	winners := s.registry.CurrentWinner()
	out := make([]WinnerView, 0, len(winners))
	for _, win := range winners {
		out = append(out, WinnerView{Tier: win.Tier.String(), Collateral: win.Outpoint.String(), Amount: win.Amount})
	}
	json.NewEncoder(w).Encode(out)
}

// GetTip reports the height of the last block the registry applied.
func (s *Service) GetTip(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]uint32{"height": s.registry.TipHeight()})
}

// PostRebuild triggers a full replay from the given height. Administrative;
// not part of consensus-critical request handling.
func (s *Service) PostRebuild(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.registry.Rebuild(uint32(height)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
