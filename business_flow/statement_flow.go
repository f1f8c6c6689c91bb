package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tourvanir/pricing-core/app/dto"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	"github.com/tourvanir/pricing-core/utils"
	"github.com/xuri/excelize/v2"
)

// StatementFlow exports per-agent credit statements
type StatementFlow interface {
	// ExportStatement renders the agent's ledger activity for a date range as
	// an xlsx workbook, one sheet per transaction type plus a summary sheet.
	ExportStatement(ctx context.Context, req *dto.ExportStatementRequest) (string, []byte, error)
}

// StatementFlowImpl implements StatementFlow
type StatementFlowImpl struct {
	agentRepo  repository.AgentRepository
	creditRepo repository.AgentCreditRepository
	txRepo     repository.CreditTransactionRepository
	validate   *validator.Validate
}

// NewStatementFlow constructs a StatementFlow
func NewStatementFlow(
	agentRepo repository.AgentRepository,
	creditRepo repository.AgentCreditRepository,
	txRepo repository.CreditTransactionRepository,
) StatementFlow {
	return &StatementFlowImpl{
		agentRepo:  agentRepo,
		creditRepo: creditRepo,
		txRepo:     txRepo,
		validate:   validator.New(),
	}
}

func (f *StatementFlowImpl) ExportStatement(ctx context.Context, req *dto.ExportStatementRequest) (string, []byte, error) {
	if err := f.validate.Struct(req); err != nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_VALIDATION_FAILED", "Invalid export request", err)
	}
	if req.StartDate.After(req.EndDate) {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_VALIDATION_FAILED", "Start date cannot be after end date", ErrStartDateAfterEndDate)
	}

	agent, err := f.agentRepo.ByID(ctx, req.AgentID)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_FAILED", "Failed to load agent", err)
	}
	if agent == nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_NOT_FOUND", "Agent not found", ErrAgentNotFound)
	}

	credit, err := f.creditRepo.ByAgentID(ctx, req.AgentID)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_FAILED", "Failed to load credit account", err)
	}
	if credit == nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_NOT_FOUND", "Credit account not found", ErrCreditAccountNotFound)
	}

	filter := models.CreditTransactionFilter{
		AgentID:       utils.ToPtr(req.AgentID),
		CreatedAfter:  utils.ToPtr(req.StartDate),
		CreatedBefore: utils.ToPtr(req.EndDate),
	}
	rows, err := f.txRepo.ListByAgent(ctx, req.AgentID, filter, utils.StatementMaxRows, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_FAILED", "Failed to list ledger entries", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	summaryName := "Summary"
	xl.SetSheetName(xl.GetSheetName(0), summaryName)
	writeSummarySheet(xl, summaryName, agent, credit, req, rows)

	// One sheet per transaction type, in ledger order.
	byType := make(map[models.CreditTransactionType][]*models.CreditTransaction)
	order := make([]models.CreditTransactionType, 0)
	for _, row := range rows {
		if _, ok := byType[row.Type]; !ok {
			order = append(order, row.Type)
		}
		byType[row.Type] = append(byType[row.Type], row)
	}

	usedNames := map[string]bool{summaryName: true}
	for _, txType := range order {
		baseName := sanitizeSheetName(string(txType))
		name := baseName
		idx := 1
		for usedNames[name] {
			idx++
			name = truncateSheetName(fmt.Sprintf("%s_%d", baseName, idx))
		}
		usedNames[name] = true
		_, _ = xl.NewSheet(name)

		header := []string{"uuid", "booking_id", "amount", "balance_before", "balance_after", "note", "created_by", "created_at"}
		_ = xl.SetSheetRow(name, "A1", &header)

		for ri, row := range byType[txType] {
			bookingID := ""
			if row.BookingID != nil {
				bookingID = *row.BookingID
			}
			record := []string{
				row.UUID.String(),
				bookingID,
				row.Amount.String(),
				row.BalanceBefore.String(),
				row.BalanceAfter.String(),
				row.Note,
				row.CreatedBy,
				row.CreatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_STATEMENT_WRITE_ERROR", "Failed to write statement workbook", err)
	}

	filename := fmt.Sprintf("credit_statement_agent_%d_%s_to_%s.xlsx",
		req.AgentID, req.StartDate.UTC().Format("20060102"), req.EndDate.UTC().Format("20060102"))
	return filename, buf.Bytes(), nil
}

func writeSummarySheet(xl *excelize.File, sheet string, agent *models.Agent, credit *models.AgentCredit, req *dto.ExportStatementRequest, rows []*models.CreditTransaction) {
	debits := models.Zero
	refunds := models.Zero
	grants := models.Zero
	for _, row := range rows {
		switch row.Type {
		case models.CreditTransactionTypeDebit:
			debits = debits.Add(row.Amount.Neg())
		case models.CreditTransactionTypeRefund:
			refunds = refunds.Add(row.Amount)
		case models.CreditTransactionTypeGrant:
			grants = grants.Add(row.Amount)
		}
	}

	lines := [][]string{
		{"Agent", agent.Name},
		{"Agent ID", strconv.FormatUint(uint64(agent.ID), 10)},
		{"Period", fmt.Sprintf("%s to %s", req.StartDate.UTC().Format("2006-01-02"), req.EndDate.UTC().Format("2006-01-02"))},
		{"Total credit", credit.TotalCredit.String()},
		{"Used credit", credit.UsedCredit.String()},
		{"Available credit", credit.AvailableCredit.String()},
		{"Total debits in period", debits.String()},
		{"Total refunds in period", refunds.String()},
		{"Total grants in period", grants.String()},
		{"Entries in period", strconv.Itoa(len(rows))},
	}
	for i, line := range lines {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = xl.SetSheetRow(sheet, cellRef, &line)
	}
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
