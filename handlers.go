package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/models/reports"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"bitbucket.org/farmasuite/pharma_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		user, err := models.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil || user.IsActive == nil || !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if err := utils.ComparePassword(user.Password, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, string(user.Role), user.PharmacyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"token": token,
			"user": gin.H{
				"id":          user.ID,
				"username":    user.Username,
				"name":        user.Name,
				"role":        user.Role,
				"pharmacy_id": user.PharmacyId,
			},
		}})
	}
}

func createStockIntakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewStockIntake
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		intake, err := workflow.CreateStockIntake(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": intake})
	}
}

func processStockIntakeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intake id"})
			return
		}
		intake, err := workflow.ProcessStockIntake(c.Request.Context(), id)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": intake})
	}
}

func lotKardexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		ctx := c.Request.Context()
		pharmacyId, _ := utils.GetPharmacyIdFromContext(ctx)
		movements, err := models.GetLotHistory(config.GetDB(), ctx, pharmacyId, id, limit)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movements})
	}
}

func exportKardexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
			return
		}
		if err := reports.ExportKardexExcel(c.Request.Context(), config.GetDB(), id, c.Writer); err != nil {
			respondWorkflowError(c, err)
		}
	}
}

func adjustStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewStockAdjustment
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		movement, err := workflow.AdjustStock(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": movement})
	}
}

type readjustPriceRequest struct {
	SalePrice decimal.Decimal `json:"sale_price" binding:"required"`
}

func readjustPriceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
			return
		}
		var req readjustPriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindBadRequest(c, err)
			return
		}
		lot, err := workflow.ReadjustPrice(c.Request.Context(), id, req.SalePrice)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": lot})
	}
}

func createCounterSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewCounterSale
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		receipt, err := workflow.CreateCounterSale(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": receipt})
	}
}

type annulRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func annulCounterSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		var req annulRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindBadRequest(c, err)
			return
		}
		order, err := workflow.AnnulCounterSale(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": order})
	}
}

func openCashSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.OpenCashSessionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		session, err := workflow.OpenCashSession(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": session})
	}
}

func recordCashMovementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewCashMovement
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		movement, err := workflow.RecordCashMovement(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": movement})
	}
}

func closeCashSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.CloseCashSessionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		session, err := workflow.CloseCashSession(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"session":  session,
			"severity": models.VarianceSeverity(session.Difference, session.TotalSystem),
		}})
	}
}

func reconcileCashSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		session, err := workflow.ReconcileCashSession(c.Request.Context(), id)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": session})
	}
}

func currentCashSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		pharmacyId, _ := utils.GetPharmacyIdFromContext(ctx)
		operatorId, _ := utils.GetUserIdFromContext(ctx)
		db := config.GetDB()
		session, err := models.GetOpenCashSession(db, ctx, pharmacyId, operatorId)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		// Live system totals so the drawer can be checked mid-shift.
		sales, err := models.SumSessionSales(db, ctx, pharmacyId, session.ID)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		movements, err := models.ListSessionMovements(db, ctx, pharmacyId, session.ID)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		system := models.ComputeSystemBuckets(session.OpeningFloat, sales, movements)
		c.JSON(http.StatusOK, gin.H{"data": session, "system": system, "total_system": system.Total()})
	}
}

func createSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		supplier, err := workflow.CreateSupplier(c.Request.Context(), &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": supplier})
	}
}

func updateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
			return
		}
		var input workflow.NewSupplier
		if err := c.ShouldBindJSON(&input); err != nil {
			bindBadRequest(c, err)
			return
		}
		supplier, err := workflow.UpdateSupplier(c.Request.Context(), id, &input)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": supplier})
	}
}

func listSuppliersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pharmacyId, ok := utils.GetPharmacyIdFromContext(c.Request.Context())
		if !ok || pharmacyId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pharmacy id is required"})
			return
		}
		suppliers, err := models.ListSuppliers(config.GetDB(), c.Request.Context(), pharmacyId)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": suppliers})
	}
}

func stockValuationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := reports.GetStockValuationReport(c.Request.Context())
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": summary})
	}
}

func exportStockValuationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := reports.ExportStockValuationExcel(c.Request.Context(), c.Writer); err != nil {
			respondWorkflowError(c, err)
		}
	}
}

// bindBadRequest answers a failed request binding. Field-level validation
// failures come back as a field to rule map so the client can point at the
// offending inputs instead of parsing a validator error string.
func bindBadRequest(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": utils.ProcessValidationErrors(fieldErrs),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondWorkflowError maps domain errors onto HTTP statuses. Anything not
// recognized stays a 500 with a generic message.
func respondWorkflowError(c *gin.Context, err error) {
	var insufficientStock *utils.InsufficientStockError
	var invalidQuantity *utils.InvalidQuantityError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.As(err, &insufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": insufficientStock.Error()})
	case errors.As(err, &invalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidQuantity.Error()})
	case errors.Is(err, utils.ErrorDuplicateSession),
		errors.Is(err, utils.ErrorDocumentAlreadyProcessed),
		errors.Is(err, utils.ErrorPayableAlreadyGenerated),
		errors.Is(err, utils.ErrorSessionNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorNoOpenSession):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorDuplicateValue):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
