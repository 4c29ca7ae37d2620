package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kubedeck/kubedeck-backend/internal/logsearch"
	"github.com/kubedeck/kubedeck-backend/internal/models"
)

// LogsService provides access to pod logs: raw streaming for the viewer and
// windowed search for its find bar.
type LogsService interface {
	GetPodLogs(ctx context.Context, namespace, podName, containerName string, follow bool, tailLines int64) (io.ReadCloser, error)
	SearchPodLogs(ctx context.Context, namespace, podName, containerName, query string, tailLines int64) (*models.LogSearchResult, error)
}

type logsService struct {
	clientset kubernetes.Interface
}

// NewLogsService creates a new logs service.
func NewLogsService(clientset kubernetes.Interface) LogsService {
	return &logsService{clientset: clientset}
}

func (s *logsService) GetPodLogs(ctx context.Context, namespace, podName, containerName string, follow bool, tailLines int64) (io.ReadCloser, error) {
	opts := &corev1.PodLogOptions{
		Container:  containerName,
		Follow:     follow,
		Timestamps: true,
	}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}

	req := s.clientset.CoreV1().Pods(namespace).GetLogs(podName, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stream logs: %w", err)
	}
	return stream, nil
}

// SearchPodLogs fetches a log window and runs the search index over it,
// returning all matches plus highlight markup for the matching lines.
// Timestamps are requested from the API and excluded from matching by the
// index.
func (s *logsService) SearchPodLogs(ctx context.Context, namespace, podName, containerName, query string, tailLines int64) (*models.LogSearchResult, error) {
	stream, err := s.GetPodLogs(ctx, namespace, podName, containerName, false, tailLines)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var lines []string
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}

	index := logsearch.NewIndex()
	index.Update(lines, query)

	result := &models.LogSearchResult{
		Query:        strings.TrimSpace(query),
		TotalLines:   len(lines),
		TotalMatches: index.Len(),
		Matches:      index.Matches(),
	}
	for i, line := range lines {
		if !index.IsMatchingLine(i) {
			continue
		}
		ts, content := logsearch.StripTimestamp(line)
		result.Lines = append(result.Lines, models.LogSearchLine{
			Index:     i,
			Timestamp: ts,
			Content:   content,
			HTML:      index.Highlight(content, i, query),
		})
	}
	return result, nil
}
