package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"stx_nexus/internal/domain"
	"stx_nexus/internal/infra"
	"stx_nexus/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const (
	BasisPrice  = "price"
	BasisAmount = "amount"

	// maxBodyBytes bounds POST bodies
	maxBodyBytes = 4 << 10
)

// ArchiveReader is the read side of the completed order archive
type ArchiveReader interface {
	GetOrder(id string) (*domain.OrderRecord, error)
	ListOrders() ([]domain.OrderRecord, error)
	CountByNetwork() (map[string]int64, error)
}

// Server exposes the order registry over REST
type Server struct {
	registry *service.OrderRegistry
	feed     domain.PriceFeed
	metrics  *infra.Metrics
	archive  ArchiveReader
	symbol   string
	deposit  map[string]string
	networks []string
	origins  []string
	router   *mux.Router
}

// Options configures a Server
type Options struct {
	Symbol           string
	DepositAddresses map[string]string
	Networks         []string
	AllowedOrigins   []string
	Archive          ArchiveReader // optional
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(registry *service.OrderRegistry, feed domain.PriceFeed, metrics *infra.Metrics, opts Options) *Server {
	deposit := make(map[string]string, len(opts.DepositAddresses))
	for k, v := range opts.DepositAddresses {
		deposit[strings.ToUpper(k)] = v
	}
	if opts.Symbol == "" {
		opts.Symbol = "BTCUSDT"
	}

	s := &Server{
		registry: registry,
		feed:     feed,
		metrics:  metrics,
		archive:  opts.Archive,
		symbol:   opts.Symbol,
		deposit:  deposit,
		networks: opts.Networks,
		origins:  opts.AllowedOrigins,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market endpoints
	api.HandleFunc("/price", s.handleGetPrice).Methods("GET")
	api.HandleFunc("/quote", s.handleGetQuote).Methods("GET")
	api.HandleFunc("/networks", s.handleGetNetworks).Methods("GET")

	// Order endpoints
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleListPending).Methods("GET")
	api.HandleFunc("/orders/history", s.handleListHistory).Methods("GET")
	api.HandleFunc("/orders/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/complete", s.handleCompleteOrder).Methods("POST")

	// Archive endpoints
	if s.archive != nil {
		api.HandleFunc("/archive", s.handleListArchive).Methods("GET")
		api.HandleFunc("/archive/{id}", s.handleGetArchived).Methods("GET")
	}

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	price, ok := s.feed.CurrentPrice()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, domain.ErrPriceUnavailable.Error())
		return
	}

	respondJSON(w, http.StatusOK, PriceResponse{
		Symbol:  s.symbol,
		Price:   price.String(),
		Display: price.StringFixed(2),
	})
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := domain.ParseAmount(q.Get("amount"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	price, ok := s.feed.CurrentPrice()
	if !ok {
		respondDomainError(w, domain.ErrPriceUnavailable)
		return
	}

	switch basis := q.Get("basis"); basis {
	case "", BasisPrice:
		quote := domain.CalculateQuote(amount, price)
		display := quote.Display()
		respondJSON(w, http.StatusOK, QuoteResponse{Basis: BasisPrice, Quote: &quote, Display: &display})
	case BasisAmount:
		aq := domain.CalculateAmountQuote(amount, price)
		respondJSON(w, http.StatusOK, QuoteResponse{Basis: BasisAmount, Amount: &aq})
	default:
		respondError(w, http.StatusBadRequest, "unknown basis: "+basis)
	}
}

func (s *Server) handleGetNetworks(w http.ResponseWriter, r *http.Request) {
	response := make([]NetworkInfo, len(s.networks))
	for i, n := range s.networks {
		response[i] = NetworkInfo{Network: n, DepositAddress: s.deposit[n]}
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := domain.ParseAmount(strings.TrimSpace(req.BTCAmount))
	if err != nil {
		s.recordFailure(err)
		respondDomainError(w, err)
		return
	}

	order, err := s.registry.Create(domain.OrderRequest{
		WalletAddress: req.WalletAddress,
		Network:       req.Network,
		BTCAmount:     amount,
	})
	if err != nil {
		s.recordFailure(err)
		slog.Warn("Order rejected", slog.String("network", req.Network), slog.Any("error", err))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, s.toResponse(order))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.toResponses(s.registry.ListPending()))
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.toResponses(s.registry.ListHistory()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{RegistryStats: s.registry.Stats()}
	if s.archive != nil {
		counts, err := s.archive.CountByNetwork()
		if err != nil {
			slog.Error("Failed to count archived orders", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "archive unavailable")
			return
		}
		resp.ArchivedByNetwork = counts
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListArchive(w http.ResponseWriter, r *http.Request) {
	recs, err := s.archive.ListOrders()
	if err != nil {
		slog.Error("Failed to list archived orders", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "archive unavailable")
		return
	}
	if recs == nil {
		recs = []domain.OrderRecord{}
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := s.archive.GetOrder(id)
	if err != nil {
		slog.Error("Failed to read archived order", slog.String("id", id), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "archive unavailable")
		return
	}
	if rec == nil {
		respondDomainError(w, fmt.Errorf("%w: %s is not archived", domain.ErrNotFound, id))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toResponse(order))
}

func (s *Server) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.registry.Complete(mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toResponse(order))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func (s *Server) recordFailure(err error) {
	if s.metrics != nil {
		s.metrics.RecordCreateFailure(err)
	}
}

func (s *Server) toResponse(o domain.Order) OrderResponse {
	resp := OrderResponse{
		Order:    o,
		Display:  o.Quote().Display(),
		TimeLeft: o.TimeLeft(),
		Expired:  o.IsExpired(),
	}
	if o.IsPending() {
		resp.DepositAddress = s.deposit[o.Network]
	}
	return resp
}

func (s *Server) toResponses(orders []domain.Order) []OrderResponse {
	result := make([]OrderResponse, len(orders))
	for i, o := range orders {
		result[i] = s.toResponse(o)
	}
	return result
}

// StatusFor maps an order error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress), errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, StatusFor(err), err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}
