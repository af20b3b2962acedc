package orders

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andrescris/logiflow/pkg/models"
)

// CallStatusInput es el avance que registra un agente sobre un lead.
type CallStatusInput struct {
	CallStatus models.CallStatus `json:"call_status" binding:"required"`
	Notas      string            `json:"notas"`
	Usuario    string            `json:"-"`
}

// UpdateCallStatus registra el avance del call center. VENTA_CONFIRMADA solo
// se alcanza con ConfirmLead y un lead confirmado ya no cambia.
func (s *Service) UpdateCallStatus(ctx context.Context, collection, leadID string, in CallStatusInput) (models.Lead, error) {
	if !in.CallStatus.Valid() {
		return models.Lead{}, fmt.Errorf("%w: unknown call status %q", models.ErrValidation, in.CallStatus)
	}
	if in.CallStatus == models.CallVentaConfirmada {
		return models.Lead{}, fmt.Errorf("%w: use the confirm endpoint to close a sale", models.ErrInvalidTransition)
	}
	lead, err := s.loadLead(ctx, collection, leadID)
	if err != nil {
		return models.Lead{}, err
	}
	if lead.CallStatus == models.CallVentaConfirmada {
		return models.Lead{}, fmt.Errorf("%w: lead %s is already confirmed", models.ErrInvalidTransition, leadID)
	}

	now := s.now().UTC()
	fields := map[string]interface{}{
		"call_status": in.CallStatus,
		"updated_at":  now,
	}
	if in.Usuario != "" {
		fields["asignado_a"] = in.Usuario
		lead.AsignadoA = in.Usuario
	}
	if in.Notas != "" {
		fields["notas"] = in.Notas
		lead.Notas = in.Notas
	}
	if err := s.db.Update(ctx, collection, leadID, fields); err != nil {
		return models.Lead{}, fmt.Errorf("update call status: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"lead_id":     leadID,
		"collection":  collection,
		"call_status": in.CallStatus,
	}).Info("call status updated")

	lead.CallStatus = in.CallStatus
	lead.UpdatedAt = &now
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.EventLeadUpdated, lead)
	}
	return lead, nil
}

