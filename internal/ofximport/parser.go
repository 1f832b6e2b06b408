// Package ofximport converts OFX/QFX bank statements into transaction records.
package ofximport

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-insights/internal/models"
)

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// categoryKeywords maps merchant name fragments onto categories; first match wins
var categoryKeywords = []struct {
	keyword  string
	category models.Category
}{
	{"rent", models.CategoryRent},
	{"property", models.CategoryRent},
	{"netflix", models.CategorySubscriptions},
	{"spotify", models.CategorySubscriptions},
	{"subscription", models.CategorySubscriptions},
	{"market", models.CategoryGroceries},
	{"grocer", models.CategoryGroceries},
	{"starbucks", models.CategoryDining},
	{"coffee", models.CategoryDining},
	{"restaurant", models.CategoryDining},
	{"cinema", models.CategoryEntertainment},
	{"ticket", models.CategoryEntertainment},
	{"airline", models.CategoryTravel},
	{"rail", models.CategoryTravel},
	{"uber", models.CategoryTravel},
	{"electronics", models.CategoryTech},
	{"apple", models.CategoryTech},
	{"utility", models.CategoryBills},
	{"electric", models.CategoryBills},
	{"payroll", models.CategoryIncome},
}

var cardPrefixes = []string{
	"POS PURCHASE ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
}

// Parser reads OFX statements for one account
type Parser struct {
	log *logrus.Logger
}

func NewParser(log *logrus.Logger) *Parser {
	return &Parser{log: log}
}

// Parse reads every bank and credit card statement in r and returns its
// transactions bound to userID and accountID. Duplicate FITIDs are dropped.
func (p *Parser) Parse(r io.Reader, userID, accountID int64) ([]models.Transaction, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var lists [][]ofxgo.Transaction
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList.Transactions)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList.Transactions)
		}
	}

	seen := make(map[string]bool)
	var out []models.Transaction
	for _, list := range lists {
		for _, tx := range list {
			id := string(tx.FiTID)
			if id != "" && seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, convert(tx, userID, accountID))
		}
	}

	p.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"account_id":   accountID,
		"statements":   len(lists),
		"transactions": len(out),
	}).Info("Parsed OFX statement")
	return out, nil
}

// preprocess repairs formatting quirks some banks emit
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRe.ReplaceAllString(content, "$1>")
}

func convert(tx ofxgo.Transaction, userID, accountID int64) models.Transaction {
	amount, _ := tx.TrnAmt.Float64()
	trnType := fmt.Sprintf("%v", tx.TrnType)

	out := models.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		Amount:      amount,
		Direction:   models.DirectionCredit,
		Merchant:    merchantName(tx),
		Description: strings.TrimSpace(string(tx.Memo)),
		Recurring:   trnType == "REPEATPMT" || trnType == "DIRECTDEBIT",
		OccurredAt:  tx.DtPosted.Time.UTC(),
	}
	if amount < 0 {
		out.Direction = models.DirectionDebit
	}

	switch trnType {
	case "INT", "DIV", "DIRECTDEP":
		out.Category = models.CategoryIncome
	case "FEE", "SRVCHG":
		out.Category = models.CategoryBills
	default:
		out.Category = inferCategory(out.Merchant)
	}
	return out
}

func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	name := strings.TrimSpace(string(tx.Name))
	upper := strings.ToUpper(name)
	for _, prefix := range cardPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return strings.TrimSpace(name[len(prefix):])
		}
	}
	return name
}

func inferCategory(merchant string) models.Category {
	lower := strings.ToLower(merchant)
	for _, k := range categoryKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.category
		}
	}
	return models.CategoryOther
}
