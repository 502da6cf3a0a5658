package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"i4.energy/across/smscore/session"
)

// Server exposes the session's high-level operations over HTTP. Every
// request is tagged with a correlation ID, returned in the X-Correlation-ID
// header of a successful response and in the body of an error response. It
// is logged with send, list, read and delete failures and with a successful
// send, so a caller can cross-reference a failure against the daemon's logs.
type Server struct {
	Session *session.Session
	Logger  *zap.SugaredLogger
}

// Router builds the daemon's HTTP route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.HandleFunc("/sms", s.handleListMessages).Methods(http.MethodGet)
	r.HandleFunc("/sms", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/sms/{index:[0-9]+}", s.handleReadMessage).Methods(http.MethodGet)
	r.HandleFunc("/sms/{index:[0-9]+}", s.handleDeleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/info/modem", s.handleModemInfo).Methods(http.MethodGet)
	r.HandleFunc("/info/network", s.handleNetworkInfo).Methods(http.MethodGet)
	r.HandleFunc("/info/signal", s.handleSignalQuality).Methods(http.MethodGet)
	r.HandleFunc("/info/location", s.handleLocationInfo).Methods(http.MethodGet)
	r.HandleFunc("/info/subscriber", s.handleSubscriberNumber).Methods(http.MethodGet)
	return r
}

type errorResponse struct {
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, correlationID, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{CorrelationID: correlationID, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, correlationID string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Correlation-ID", correlationID)
	json.NewEncoder(w).Encode(v)
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	logger := s.Logger.With("correlation_id", correlationID)

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, correlationID, err.Error(), http.StatusBadRequest)
		return
	}
	if req.To == "" || req.Message == "" {
		s.writeError(w, correlationID, "both 'to' and 'message' fields are required", http.StatusBadRequest)
		return
	}

	refs, err := s.Session.SendMessage(r.Context(), req.To, req.Message)
	if err != nil {
		logger.Errorw("send message failed", "to", req.To, "error", err)
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Infow("sent message", "to", req.To, "message_length", len(req.Message), "refs", refs)
	s.writeJSON(w, correlationID, map[string]any{"status": "sent", "refs": refs})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	stat := 4
	if v := r.URL.Query().Get("stat"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, correlationID, "stat must be an integer", http.StatusBadRequest)
			return
		}
		stat = parsed
	}

	messages, err := s.Session.ListMessages(r.Context(), stat)
	if err != nil {
		s.Logger.Errorw("list messages failed", "correlation_id", correlationID, "error", err)
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, correlationID, messages)
}

func (s *Server) handleReadMessage(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, correlationID, "invalid index", http.StatusBadRequest)
		return
	}

	msg, err := s.Session.ReadMessage(r.Context(), index)
	if err != nil {
		s.Logger.Errorw("read message failed", "correlation_id", correlationID, "index", index, "error", err)
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	if msg == nil {
		s.writeError(w, correlationID, "no such message", http.StatusNotFound)
		return
	}
	s.writeJSON(w, correlationID, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, correlationID, "invalid index", http.StatusBadRequest)
		return
	}

	msg, err := s.Session.DeleteMessage(r.Context(), index)
	if err != nil {
		s.Logger.Errorw("delete message failed", "correlation_id", correlationID, "index", index, "error", err)
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	if msg == nil {
		s.writeError(w, correlationID, "no such message", http.StatusNotFound)
		return
	}
	s.writeJSON(w, correlationID, msg)
}

func (s *Server) handleModemInfo(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	info, err := s.Session.ModemInfo(r.Context())
	if err != nil {
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, correlationID, info)
}

func (s *Server) handleNetworkInfo(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	info, err := s.Session.NetworkInfo(r.Context())
	if err != nil {
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, correlationID, info)
}

func (s *Server) handleSubscriberNumber(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	num, err := s.Session.SubscriberNumber(r.Context())
	if err != nil {
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, correlationID, num)
}

func (s *Server) handleSignalQuality(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	sq, err := s.Session.SignalQuality(r.Context())
	if err != nil {
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, correlationID, sq)
}

func (s *Server) handleLocationInfo(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	loc, err := s.Session.LocationInfo(r.Context())
	if err != nil {
		s.writeError(w, correlationID, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, correlationID, loc)
}
