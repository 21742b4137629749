package workflow

import (
	"testing"

	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
)

func TestEnsureSessionOperator_OwnSessionPasses(t *testing.T) {
	session := &models.CashSession{ID: 12, OperatorId: 7, Status: models.CashSessionStatusOpen}
	if err := ensureSessionOperator(session, 7); err != nil {
		t.Fatalf("expected own session to pass, got %v", err)
	}
}

func TestEnsureSessionOperator_ForeignOperatorRejected(t *testing.T) {
	session := &models.CashSession{ID: 12, OperatorId: 7, Status: models.CashSessionStatusOpen}
	err := ensureSessionOperator(session, 9)
	if err == nil {
		t.Fatal("expected another operator's close attempt to be rejected")
	}
	if err != utils.ErrorNoOpenSession {
		t.Fatalf("expected ErrorNoOpenSession, got %v", err)
	}
}

// The rejection must not reveal that the session exists at all: the caller
// gets the same error as when they have no open session.
func TestEnsureSessionOperator_RejectionDoesNotLeakOwnership(t *testing.T) {
	session := &models.CashSession{ID: 12, OperatorId: 7, Status: models.CashSessionStatusOpen}
	err := ensureSessionOperator(session, 9)
	if err == nil || err.Error() != utils.ErrorNoOpenSession.Error() {
		t.Fatalf("rejection should be indistinguishable from a missing session, got %v", err)
	}
}
