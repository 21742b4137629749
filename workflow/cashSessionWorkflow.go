package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
)

const cashSessionModuleFile = "cashSessionWorkflow.go"

type OpenCashSessionInput struct {
	RegisterId   int             `json:"register_id" binding:"required"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type CloseCashSessionInput struct {
	SessionId int `json:"session_id" binding:"required"`

	DeclaredCash  decimal.Decimal `json:"declared_cash"`
	DeclaredPos   decimal.Decimal `json:"declared_pos"`
	DeclaredMpesa decimal.Decimal `json:"declared_mpesa"`
	DeclaredEmola decimal.Decimal `json:"declared_emola"`
	DeclaredOther decimal.Decimal `json:"declared_other"`

	ClosingProofUrl string   `json:"closing_proof_url"`
	Observations    string   `json:"observations"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

type NewCashMovement struct {
	Kind      models.CashMovementKind `json:"kind" binding:"required"`
	Amount    decimal.Decimal         `json:"amount"`
	Reason    string                  `json:"reason"`
	ExpenseId *int                    `json:"expense_id"`
}

// OpenCashSession opens the operator's drawer for the day. An operator holds
// at most one open session; the advisory lock closes the race where two
// requests both pass the existence check.
func OpenCashSession(ctx context.Context, input *OpenCashSessionInput) (*models.CashSession, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	operatorId, _ := utils.GetUserIdFromContext(ctx)
	if input.OpeningFloat.IsNegative() {
		return nil, errors.New("opening float must not be negative")
	}
	if err := utils.ValidateResourceId[models.CashRegister](ctx, pharmacyId, input.RegisterId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	lock, err := AcquireSessionPostingLock(ctx, db, pharmacyId, operatorId)
	if err != nil {
		config.LogError(logger, cashSessionModuleFile, "OpenCashSession", "AcquireSessionPostingLock", operatorId, err)
		return nil, err
	}
	defer lock.Release()
	tx := db.Begin()

	_, err = models.GetOpenCashSession(tx, ctx, pharmacyId, operatorId)
	if err == nil {
		tx.Rollback()
		return nil, utils.ErrorDuplicateSession
	}
	if err != utils.ErrorNoOpenSession {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "OpenCashSession", "GetOpenCashSession", operatorId, err)
		return nil, err
	}

	session := models.CashSession{
		PharmacyId:   pharmacyId,
		RegisterId:   input.RegisterId,
		OperatorId:   operatorId,
		Status:       models.CashSessionStatusOpen,
		OpeningFloat: input.OpeningFloat,
		SystemCash:   input.OpeningFloat,
		TotalSystem:  input.OpeningFloat,
		OpenedAt:     time.Now(),
	}
	if err := tx.WithContext(ctx).Create(&session).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "OpenCashSession", "Create", operatorId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, cashSessionModuleFile, "OpenCashSession", "Commit", operatorId, err)
		return nil, err
	}
	return &session, nil
}

// RecordCashMovement registers a reinforcement, withdrawal or expense payment
// against the operator's open session. Only the physical cash bucket moves.
func RecordCashMovement(ctx context.Context, input *NewCashMovement) (*models.CashMovement, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	operatorId, _ := utils.GetUserIdFromContext(ctx)
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, errors.New("movement amount must be positive")
	}
	switch input.Kind {
	case models.CashMovementKindReinforcement, models.CashMovementKindWithdrawal, models.CashMovementKindExpensePayment:
	default:
		return nil, errors.New("invalid cash movement kind")
	}
	if input.ExpenseId != nil {
		if input.Kind != models.CashMovementKindExpensePayment {
			return nil, errors.New("expense link is only valid on a payment movement")
		}
		if err := utils.ValidateResourceId[models.Expense](ctx, pharmacyId, *input.ExpenseId); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	tx := db.Begin()

	session, err := models.GetOpenCashSession(tx, ctx, pharmacyId, operatorId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	movement := models.CashMovement{
		PharmacyId:    pharmacyId,
		CashSessionId: session.ID,
		Kind:          input.Kind,
		Amount:        input.Amount,
		Reason:        input.Reason,
		ExpenseId:     input.ExpenseId,
		PerformedBy:   operatorId,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "RecordCashMovement", "Create", session.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, cashSessionModuleFile, "RecordCashMovement", "Commit", session.ID, err)
		return nil, err
	}
	return &movement, nil
}

// CloseCashSession recomputes the system totals from the session's orders
// and cash movements, stores the operator's declared counts next to them and
// closes the session with the signed difference. Nothing is clamped, a short
// drawer closes negative.
func CloseCashSession(ctx context.Context, input *CloseCashSessionInput) (*models.CashSession, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	operatorId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	db := config.GetDB()
	lock, err := AcquireSessionPostingLock(ctx, db, pharmacyId, operatorId)
	if err != nil {
		config.LogError(logger, cashSessionModuleFile, "CloseCashSession", "AcquireSessionPostingLock", operatorId, err)
		return nil, err
	}
	defer lock.Release()
	tx := db.Begin()

	session, err := models.GetCashSessionForUpdate(tx, ctx, pharmacyId, input.SessionId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := ensureSessionOperator(session, operatorId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if session.Status != models.CashSessionStatusOpen {
		tx.Rollback()
		return nil, utils.ErrorSessionNotOpen
	}

	sales, err := models.SumSessionSales(tx, ctx, pharmacyId, session.ID)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "CloseCashSession", "SumSessionSales", session.ID, err)
		return nil, err
	}
	movements, err := models.ListSessionMovements(tx, ctx, pharmacyId, session.ID)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "CloseCashSession", "ListSessionMovements", session.ID, err)
		return nil, err
	}

	system := models.ComputeSystemBuckets(session.OpeningFloat, sales, movements)
	declared := models.BucketTotals{
		Cash:  input.DeclaredCash,
		Pos:   input.DeclaredPos,
		Mpesa: input.DeclaredMpesa,
		Emola: input.DeclaredEmola,
		Other: input.DeclaredOther,
	}
	difference := models.ComputeDifference(declared, system)

	updates := map[string]interface{}{
		"status":            models.CashSessionStatusClosed,
		"closed_at":         &now,
		"declared_cash":     declared.Cash,
		"declared_pos":      declared.Pos,
		"declared_mpesa":    declared.Mpesa,
		"declared_emola":    declared.Emola,
		"declared_other":    declared.Other,
		"system_cash":       system.Cash,
		"system_pos":        system.Pos,
		"system_mpesa":      system.Mpesa,
		"system_emola":      system.Emola,
		"system_other":      system.Other,
		"total_declared":    declared.Total(),
		"total_system":      system.Total(),
		"difference":        difference,
		"closing_proof_url": input.ClosingProofUrl,
		"observations":      input.Observations,
		"latitude":          input.Latitude,
		"longitude":         input.Longitude,
	}
	err = tx.WithContext(ctx).Model(&models.CashSession{}).
		Where("id = ?", session.ID).
		Updates(updates).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "CloseCashSession", "Close", session.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, cashSessionModuleFile, "CloseCashSession", "Commit", session.ID, err)
		return nil, err
	}

	session.Status = models.CashSessionStatusClosed
	session.ClosedAt = &now
	session.DeclaredCash, session.DeclaredPos = declared.Cash, declared.Pos
	session.DeclaredMpesa, session.DeclaredEmola, session.DeclaredOther = declared.Mpesa, declared.Emola, declared.Other
	session.SystemCash, session.SystemPos = system.Cash, system.Pos
	session.SystemMpesa, session.SystemEmola, session.SystemOther = system.Mpesa, system.Emola, system.Other
	session.TotalDeclared = declared.Total()
	session.TotalSystem = system.Total()
	session.Difference = difference
	session.ClosingProofUrl = input.ClosingProofUrl
	session.Observations = input.Observations
	session.Latitude = input.Latitude
	session.Longitude = input.Longitude
	return session, nil
}

// ensureSessionOperator rejects lifecycle writes against another operator's
// session. The caller learns nothing beyond "not your open session".
func ensureSessionOperator(session *models.CashSession, operatorId int) error {
	if session.OperatorId != operatorId {
		return utils.ErrorNoOpenSession
	}
	return nil
}

// ReconcileCashSession is the manager's sign-off on a closed session.
func ReconcileCashSession(ctx context.Context, sessionId int) (*models.CashSession, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	reviewerId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	db := config.GetDB()
	tx := db.Begin()

	session, err := models.GetCashSessionForUpdate(tx, ctx, pharmacyId, sessionId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if session.Status != models.CashSessionStatusClosed {
		tx.Rollback()
		return nil, errors.New("only a closed session can be reconciled")
	}

	err = tx.WithContext(ctx).Model(&models.CashSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"status":        models.CashSessionStatusReconciled,
			"reconciled_at": &now,
			"reconciled_by": reviewerId,
		}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, cashSessionModuleFile, "ReconcileCashSession", "Reconcile", session.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, cashSessionModuleFile, "ReconcileCashSession", "Commit", session.ID, err)
		return nil, err
	}
	session.Status = models.CashSessionStatusReconciled
	session.ReconciledAt = &now
	session.ReconciledBy = &reviewerId
	return session, nil
}
