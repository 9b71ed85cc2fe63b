// Package dynamo adapts the analysis pipeline's query descriptors to DynamoDB.
// It owns store-level concerns the pipeline stays out of: pagination, retrying
// throttled calls, and normalizing DynamoDB's decimal numbers to float64.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/meridianlabs/salescope/pkg/analyst"
)

const maxRetryElapsed = 30 * time.Second

// Executor runs query descriptors against DynamoDB.
type Executor struct {
	client      *dynamodb.Client
	tablePrefix string
	log         *slog.Logger
}

// NewExecutor creates a DynamoDB-backed executor.
func NewExecutor(cfg aws.Config, tablePrefix string, log *slog.Logger) *Executor {
	return &Executor{
		client:      dynamodb.NewFromConfig(cfg),
		tablePrefix: tablePrefix,
		log:         log,
	}
}

// Execute runs the descriptor and returns rows with plain Go values. Scans
// paginate through the whole table; throttled pages are retried with
// exponential backoff.
func (e *Executor) Execute(ctx context.Context, query analyst.QueryDescriptor) ([]map[string]any, error) {
	if query.Table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	table := e.tablePrefix + query.Table

	switch query.Operation {
	case "", "scan":
		return e.scan(ctx, table, query)
	case "query":
		return e.query(ctx, table, query)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", query.Operation)
	}
}

func (e *Executor) scan(ctx context.Context, table string, query analyst.QueryDescriptor) ([]map[string]any, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(table),
	}
	if query.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(query.ProjectionExpression)
	}

	var rows []map[string]any
	paginator := dynamodb.NewScanPaginator(e.client, input)
	for paginator.HasMorePages() {
		var page *dynamodb.ScanOutput
		err := e.withThrottleRetry(ctx, "scan", func() error {
			var pageErr error
			page, pageErr = paginator.NextPage(ctx)
			return pageErr
		})
		if err != nil {
			return nil, fmt.Errorf("scan failed on table %s: %w", table, err)
		}
		for _, item := range page.Items {
			rows = append(rows, itemToRow(item))
		}
	}

	if e.log != nil {
		e.log.Debug("dynamo: scan complete", "table", table, "rows", len(rows))
	}
	return rows, nil
}

func (e *Executor) query(ctx context.Context, table string, query analyst.QueryDescriptor) ([]map[string]any, error) {
	if query.KeyCondition == "" {
		return nil, fmt.Errorf("key condition is required for query operations")
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String(query.KeyCondition),
	}
	if query.FilterExpression != "" {
		input.FilterExpression = aws.String(query.FilterExpression)
	}
	if query.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(query.ProjectionExpression)
	}

	var out *dynamodb.QueryOutput
	err := e.withThrottleRetry(ctx, "query", func() error {
		var qErr error
		out, qErr = e.client.Query(ctx, input)
		return qErr
	})
	if err != nil {
		return nil, fmt.Errorf("query failed on table %s: %w", table, err)
	}

	rows := make([]map[string]any, 0, len(out.Items))
	for _, item := range out.Items {
		rows = append(rows, itemToRow(item))
	}
	return rows, nil
}

// withThrottleRetry retries an operation with exponential backoff as long as
// DynamoDB reports throttling. Other errors are returned immediately.
func (e *Executor) withThrottleRetry(ctx context.Context, operation string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryElapsed

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isThrottle(err) {
			return backoff.Permanent(err)
		}
		if e.log != nil {
			e.log.Warn("dynamo: throttled, backing off", "operation", operation, "error", err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func isThrottle(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.LimitExceededException
	var requestLimit *types.RequestLimitExceeded
	return errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &requestLimit)
}
