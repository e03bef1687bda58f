package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/flowplatform/flow_backend/models"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/xuri/excelize/v2"
)

const statementSheet = "Statement"

// ExportPostedStatement renders the statement as XLSX, uploads it, and
// returns the statement with a presigned download URL stamped on it.
func ExportPostedStatement(ctx context.Context, checkId string) (*models.PostedStatement, error) {
	statement, err := models.GeneratePostedStatement(ctx, checkId)
	if err != nil {
		return nil, err
	}

	content, err := renderPostedStatementXlsx(statement)
	if err != nil {
		return nil, err
	}

	storage, err := utils.NewS3Storage(ctx)
	if err != nil {
		return nil, err
	}
	bucket := utils.GetStorageBucket()
	key := fmt.Sprintf("statements/%s/statement_%s.xlsx",
		statement.CheckId, time.Now().UTC().Format("20060102150405"))
	if err := storage.Upload(ctx, bucket, key, content,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return nil, err
	}

	url, err := storage.Presign(ctx, bucket, key, utils.DefaultPresignExpiry)
	if err != nil {
		return nil, err
	}
	statement.DownloadUrl = &url
	return statement, nil
}

func renderPostedStatementXlsx(statement *models.PostedStatement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(statementSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	f.SetCellValue(statementSheet, "A1", "Check Number")
	f.SetCellValue(statementSheet, "B1", statement.CheckNumber)

	f.SetCellValue(statementSheet, "A3", "Type")
	f.SetCellValue(statementSheet, "B3", "Number")
	f.SetCellValue(statementSheet, "C3", "Rep")
	f.SetCellValue(statementSheet, "D3", "Expected")
	f.SetCellValue(statementSheet, "E3", "Received")

	row := 4
	for _, d := range statement.Details {
		f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), string(d.EntityType))
		f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), d.EntityNumber)
		f.SetCellValue(statementSheet, "C"+fmt.Sprint(row), d.RepId)
		f.SetCellValue(statementSheet, "D"+fmt.Sprint(row), d.Expected.InexactFloat64())
		f.SetCellValue(statementSheet, "E"+fmt.Sprint(row), d.Received.InexactFloat64())
		row++
	}

	row++
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Paid")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), statement.Summary.Paid.InexactFloat64())
	row++
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Credits")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), statement.Summary.Credits.InexactFloat64())
	row++
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Expenses")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), statement.Summary.Expenses.InexactFloat64())
	row++
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Applied Total")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), statement.Summary.AppliedTotal.InexactFloat64())
	row++
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Expected")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), statement.Summary.Expected.InexactFloat64())
	row++
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Balance")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), statement.Summary.Balance.InexactFloat64())

	row += 2
	f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), "Rep")
	f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), "Expected")
	f.SetCellValue(statementSheet, "C"+fmt.Sprint(row), "Received")
	row++
	for _, r := range statement.RepSummaries {
		f.SetCellValue(statementSheet, "A"+fmt.Sprint(row), r.RepId)
		f.SetCellValue(statementSheet, "B"+fmt.Sprint(row), r.Expected.InexactFloat64())
		f.SetCellValue(statementSheet, "C"+fmt.Sprint(row), r.Received.InexactFloat64())
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
