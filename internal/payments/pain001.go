// Package payments renders ISO-20022 pain.001 customer credit transfer
// initiation files for approved expense reports.
package payments

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Namespace of the pain.001.001.03 schema.
const pain001Namespace = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.03"

// Transfer is one credit transfer to include in the file.
type Transfer struct {
	EndToEndID string
	Creditor   string
	Amount     int64 // minor units
	Currency   string
}

type document struct {
	XMLName xml.Name `xml:"Document"`
	Xmlns   string   `xml:"xmlns,attr"`
	Initn   initiation
}

type initiation struct {
	XMLName xml.Name `xml:"CstmrCdtTrfInitn"`
	GrpHdr  groupHeader
	PmtInf  paymentInfo
}

type groupHeader struct {
	XMLName  xml.Name `xml:"GrpHdr"`
	MsgID    string   `xml:"MsgId"`
	CreDtTm  string   `xml:"CreDtTm"`
	NbOfTxs  int      `xml:"NbOfTxs"`
	CtrlSum  string   `xml:"CtrlSum"`
	InitgPty party    `xml:"InitgPty"`
}

type paymentInfo struct {
	XMLName     xml.Name `xml:"PmtInf"`
	PmtInfID    string   `xml:"PmtInfId"`
	PmtMtd      string   `xml:"PmtMtd"`
	ReqdExctnDt string   `xml:"ReqdExctnDt"`
	Dbtr        party    `xml:"Dbtr"`
	Txs         []creditTransfer
}

type creditTransfer struct {
	XMLName xml.Name `xml:"CdtTrfTxInf"`
	PmtID   struct {
		EndToEndID string `xml:"EndToEndId"`
	} `xml:"PmtId"`
	Amt struct {
		InstdAmt instructedAmount `xml:"InstdAmt"`
	} `xml:"Amt"`
	Cdtr party `xml:"Cdtr"`
}

type instructedAmount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type party struct {
	Nm string `xml:"Nm"`
}

// BuildPain001 renders a pain.001 document covering the given transfers.
// executionDate is the requested execution date (YYYY-MM-DD).
func BuildPain001(msgID, debtor, executionDate string, now time.Time, transfers []Transfer) (string, error) {
	var total int64
	txs := make([]creditTransfer, 0, len(transfers))
	for _, t := range transfers {
		total += t.Amount

		var tx creditTransfer
		tx.PmtID.EndToEndID = t.EndToEndID
		tx.Amt.InstdAmt = instructedAmount{Ccy: t.Currency, Value: FormatAmount(t.Amount)}
		tx.Cdtr = party{Nm: t.Creditor}
		txs = append(txs, tx)
	}

	doc := document{
		Xmlns: pain001Namespace,
		Initn: initiation{
			GrpHdr: groupHeader{
				MsgID:    msgID,
				CreDtTm:  now.UTC().Format(time.RFC3339),
				NbOfTxs:  len(transfers),
				CtrlSum:  FormatAmount(total),
				InitgPty: party{Nm: debtor},
			},
			PmtInf: paymentInfo{
				PmtInfID:    msgID,
				PmtMtd:      "TRF",
				ReqdExctnDt: executionDate,
				Dbtr:        party{Nm: debtor},
				Txs:         txs,
			},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal pain.001 document: %w", err)
	}
	return xml.Header + string(body), nil
}

// FormatAmount renders minor units as a decimal string with two places.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
