package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jellydator/ttlcache/v3"
)

const schemaCacheKey = "schema"

// SchemaFetcher describes the DynamoDB tables available to the pipeline. The
// formatted result is cached because DescribeTable plus a sample scan per
// table is too expensive to repeat on every question.
type SchemaFetcher struct {
	client      *dynamodb.Client
	tablePrefix string
	cache       *ttlcache.Cache[string, string]
	log         *slog.Logger
}

// NewSchemaFetcher creates a schema fetcher with the given cache TTL.
func NewSchemaFetcher(cfg aws.Config, tablePrefix string, ttl time.Duration, log *slog.Logger) *SchemaFetcher {
	return &SchemaFetcher{
		client:      dynamodb.NewFromConfig(cfg),
		tablePrefix: tablePrefix,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, string](ttl),
		),
		log: log,
	}
}

// FetchSchema returns a formatted description of every available table: its
// key schema and a sample of its attribute names.
func (f *SchemaFetcher) FetchSchema(ctx context.Context) (string, error) {
	if item := f.cache.Get(schemaCacheKey); item != nil {
		return item.Value(), nil
	}

	tables, err := f.listTables(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	var sb strings.Builder
	for _, table := range tables {
		desc, err := f.describeTable(ctx, table)
		if err != nil {
			if f.log != nil {
				f.log.Warn("dynamo: failed to describe table, skipping", "table", table, "error", err)
			}
			continue
		}
		sb.WriteString(desc)
		sb.WriteString("\n")
	}

	schema := strings.TrimSpace(sb.String())
	f.cache.Set(schemaCacheKey, schema, ttlcache.DefaultTTL)
	return schema, nil
}

func (f *SchemaFetcher) listTables(ctx context.Context) ([]string, error) {
	var tables []string
	paginator := dynamodb.NewListTablesPaginator(f.client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range page.TableNames {
			if f.tablePrefix == "" || strings.HasPrefix(name, f.tablePrefix) {
				tables = append(tables, name)
			}
		}
	}
	sort.Strings(tables)
	return tables, nil
}

func (f *SchemaFetcher) describeTable(ctx context.Context, table string) (string, error) {
	out, err := f.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Table: ")
	sb.WriteString(strings.TrimPrefix(table, f.tablePrefix))
	sb.WriteString("\n")

	keys := make([]string, 0, len(out.Table.KeySchema))
	for _, key := range out.Table.KeySchema {
		keys = append(keys, fmt.Sprintf("%s (%s)", aws.ToString(key.AttributeName), key.KeyType))
	}
	sb.WriteString("Key Schema: ")
	sb.WriteString(strings.Join(keys, ", "))
	sb.WriteString("\n")

	if attrs := f.sampleAttributes(ctx, table); len(attrs) > 0 {
		sb.WriteString("Attributes: ")
		sb.WriteString(strings.Join(attrs, ", "))
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// sampleAttributes scans a single item to learn the table's attribute names.
func (f *SchemaFetcher) sampleAttributes(ctx context.Context, table string) []string {
	out, err := f.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(table),
		Limit:     aws.Int32(1),
	})
	if err != nil || len(out.Items) == 0 {
		return nil
	}

	attrs := make([]string, 0, len(out.Items[0]))
	for name := range out.Items[0] {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)
	return attrs
}
