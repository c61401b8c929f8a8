package report

import "errors"

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrDuplicateReport = errors.New("an identical report file has already been uploaded")
	ErrEmptyReportText = errors.New("no text could be extracted from the report file")
)
