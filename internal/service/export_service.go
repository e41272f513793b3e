package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// ExportService 管理员侧的匿名结果导出。导出内容只来自结果读路径
// （会话与作答），行首是匿名令牌，不存在任何身份列。
type ExportService struct {
	Results *ResultsService
	Storage *StorageService
}

func NewExportService(results *ResultsService, storage *StorageService) *ExportService {
	return &ExportService{Results: results, Storage: storage}
}

// ExportResult 导出完成后的对象地址与行数
// swagger:model ExportResult
type ExportResult struct {
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	RowCount  int    `json:"rowCount"`
	ExportCSV bool   `json:"csv"`
}

// ExportEvaluationCSV 导出某考核全部已提交的匿名作答为 CSV 并上传
func (s *ExportService) ExportEvaluationCSV(ctx context.Context, evaluationID uint) (*ExportResult, error) {
	const pageSize = 200

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"token", "session_id", "submitted_at", "question_id", "content"}); err != nil {
		return nil, err
	}

	rows := 0
	for page := 1; ; page++ {
		sessions, total, err := s.Results.ListSubmissions(evaluationID, page, pageSize)
		if err != nil {
			return nil, err
		}
		for _, session := range sessions {
			submittedAt := ""
			if session.SubmittedAt != nil {
				submittedAt = session.SubmittedAt.UTC().Format(time.RFC3339)
			}
			answers, err := s.Results.SessionAnswers(session.ID)
			if err != nil {
				return nil, err
			}
			for _, a := range answers {
				record := []string{
					session.Token,
					session.ID,
					submittedAt,
					strconv.FormatUint(uint64(a.QuestionID), 10),
					a.Content,
				}
				if err := w.Write(record); err != nil {
					return nil, err
				}
				rows++
			}
		}
		if int64(page*pageSize) >= total {
			break
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("exports/evaluation_%d_%s.csv", evaluationID, time.Now().UTC().Format("20060102T150405Z"))
	url, err := s.Storage.Upload(ctx, filename, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv")
	if err != nil {
		return nil, err
	}

	return &ExportResult{URL: url, Filename: filename, RowCount: rows, ExportCSV: true}, nil
}
