package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/tally-sh/tally/internal/model"
)

// OFXImporter reads OFX/QFX statement downloads. Banks emit slightly broken
// SGML-flavored OFX more often than not, so the content is preprocessed
// before handing it to ofxgo.
type OFXImporter struct {
	Source        string
	HomeLocations map[string]struct{}
}

var (
	ofxSeverityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	ofxOpenTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes the formatting issues seen in real bank exports:
// leading blank lines, mixed-case SEVERITY values, and SGML opening tags
// missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = ofxSeverityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return ofxOpenTagRe.ReplaceAllString(content, "$1>")
}

// ImportFile reads one OFX/QFX file.
func (imp *OFXImporter) ImportFile(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return imp.Import(f)
}

// Import reads transactions from OFX content. Both bank and credit card
// statements are processed; a statement that fails to convert is skipped.
func (imp *OFXImporter) Import(r io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading OFX content: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parsing OFX: %w", err)
	}

	var transactions []model.Transaction

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, ofxTxn := range stmt.BankTranList.Transactions {
			transactions = append(transactions, imp.convert(ofxTxn))
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, ofxTxn := range stmt.BankTranList.Transactions {
			transactions = append(transactions, imp.convert(ofxTxn))
		}
	}

	slog.Debug("parsed OFX statement",
		"source", imp.Source,
		"transactions", len(transactions))
	return transactions, nil
}

// convert maps one OFX transaction to the domain model. OFX records debits as
// negative amounts; the convention here is positive = expense, so the sign is
// flipped.
func (imp *OFXImporter) convert(ofxTxn ofxgo.Transaction) model.Transaction {
	description := ofxDescription(ofxTxn)
	amount, _ := ofxTxn.TrnAmt.Float64()

	txn := model.Transaction{
		Date:           ofxTxn.DtPosted.Time,
		RawDescription: description,
		Amount:         -amount,
		Source:         imp.Source,
	}
	txn.Location = ExtractLocation(description)
	txn.IsTravel = IsTravelLocation(txn.Location, imp.HomeLocations)
	txn.Hash = txn.GenerateHash()
	return txn
}

// genericOFXNames are NAME values that carry no merchant information.
var genericOFXNames = map[string]struct{}{
	"DEBIT":           {},
	"CREDIT":          {},
	"PURCHASE":        {},
	"PAYMENT":         {},
	"POS TRANSACTION": {},
	"CARD PURCHASE":   {},
}

// ofxDescription picks the most useful description field. PAYEE is the
// cleanest when present; MEMO beats a generic NAME.
func ofxDescription(txn ofxgo.Transaction) string {
	if txn.Payee != nil && txn.Payee.Name != "" {
		return strings.TrimSpace(string(txn.Payee.Name))
	}

	name := strings.TrimSpace(string(txn.Name))
	if txn.Memo != "" {
		if _, generic := genericOFXNames[strings.ToUpper(name)]; generic {
			name = strings.TrimSpace(string(txn.Memo))
		}
	}
	return name
}
