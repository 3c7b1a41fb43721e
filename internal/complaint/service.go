package complaint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/transit-assist/internal/models"
	"github.com/example/transit-assist/internal/notify"
	"github.com/example/transit-assist/internal/observability"
	"github.com/example/transit-assist/internal/storage"
)

const keyPrefix = "complaint:"

const receivedMessage = "Complaint received and is being reviewed"

// ErrUnknownStatus is returned by UpdateStatus for statuses outside the
// recognized set. Transitions between recognized statuses are unrestricted.
var ErrUnknownStatus = fmt.Errorf("unknown complaint status")

// Service owns complaint persistence and the append-only status history.
type Service struct {
	Store    storage.Store
	Notifier notify.Notifier // optional; nil disables status notifications
	Logger   *slog.Logger
}

// Create assigns an ID, stamps the submission time and seeds the status
// history with the initial "submitted" entry.
func (s *Service) Create(ctx context.Context, c models.Complaint) (models.Complaint, error) {
	c.ComplaintID = "AMTS-" + newSuffix()
	c.Timestamp = time.Now().UTC()
	c.Status = models.StatusSubmitted
	c.StatusHistory = []models.StatusEntry{{
		Status:    models.StatusSubmitted,
		Timestamp: c.Timestamp,
		Message:   receivedMessage,
	}}

	raw, err := json.Marshal(c)
	if err != nil {
		return models.Complaint{}, err
	}
	if err := s.Store.Set(ctx, keyPrefix+c.ComplaintID, raw); err != nil {
		return models.Complaint{}, err
	}
	observability.ComplaintsCreated.Inc()
	if s.Logger != nil {
		s.Logger.Info("complaint saved", "complaintId", c.ComplaintID, "category", c.Category)
	}
	return c, nil
}

// List returns all complaints, most recent first.
func (s *Service) List(ctx context.Context) ([]models.Complaint, error) {
	raws, err := s.Store.GetByPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]models.Complaint, 0, len(raws))
	for _, raw := range raws {
		var c models.Complaint
		if err := json.Unmarshal(raw, &c); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skipping malformed complaint record", "error", err)
			}
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Get performs a point lookup; storage.ErrNotFound passes through untouched.
func (s *Service) Get(ctx context.Context, id string) (models.Complaint, error) {
	raw, err := s.Store.Get(ctx, keyPrefix+id)
	if err != nil {
		return models.Complaint{}, err
	}
	var c models.Complaint
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.Complaint{}, err
	}
	return c, nil
}

// UpdateStatus overwrites the current status and appends one history entry.
// The mutation goes through the store's atomic update primitive, so two
// concurrent updates on the same complaint each land exactly one entry instead
// of the last writer silently dropping the other's.
func (s *Service) UpdateStatus(ctx context.Context, id, status, message string) (models.Complaint, error) {
	if !models.KnownComplaintStatus(status) {
		return models.Complaint{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	var updated models.Complaint
	var entry models.StatusEntry
	err := s.Store.Update(ctx, keyPrefix+id, func(cur []byte) ([]byte, error) {
		var c models.Complaint
		if err := json.Unmarshal(cur, &c); err != nil {
			return nil, err
		}
		entry = models.StatusEntry{Status: status, Timestamp: time.Now().UTC(), Message: message}
		c.Status = status
		c.StatusHistory = append(c.StatusHistory, entry)
		updated = c
		return json.Marshal(c)
	})
	if err != nil {
		return models.Complaint{}, err
	}
	observability.ComplaintStatusUpdates.Inc()
	if s.Logger != nil {
		s.Logger.Info("complaint status updated", "complaintId", id, "status", status)
	}

	// best-effort rider notification; failures are logged, never surfaced
	if s.Notifier != nil {
		if err := s.Notifier.StatusChanged(ctx, updated, entry); err != nil {
			observability.NotificationDispatchErr.Inc()
			if s.Logger != nil {
				s.Logger.Warn("status notification failed", "complaintId", id, "error", err)
			}
		}
	}
	return updated, nil
}

// newSuffix returns 8 uppercase hex chars from crypto/rand; the AMTS- prefix
// stays for continuity with records created by the legacy system.
func newSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}
