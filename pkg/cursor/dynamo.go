package cursor

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/rs/zerolog"
)

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// cursorItem is the table record. The pipeline name is the fixed partition
// key; one pipeline owns exactly one item.
type cursorItem struct {
	Pipeline  string `dynamodbav:"pipeline"`
	Cursor    int64  `dynamodbav:"cursor"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoStore keeps the cursor in a keyed table with strongly consistent
// reads. Chosen when multiple concurrent runners must not race on stale
// reads; writes remain last-writer-wins.
type DynamoStore struct {
	client   dynamoAPI
	table    string
	pipeline string
	logger   zerolog.Logger
}

// NewDynamoStore creates a DynamoDB-backed cursor store using the default
// AWS credential chain.
func NewDynamoStore(ctx context.Context, table, pipeline string) (*DynamoStore, error) {
	if table == "" || pipeline == "" {
		return nil, fmt.Errorf("cursor table and pipeline name are required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewDynamoStoreWithClient(dynamodb.NewFromConfig(cfg), table, pipeline), nil
}

// NewDynamoStoreWithClient creates a store with an injected client (for testing).
func NewDynamoStoreWithClient(client dynamoAPI, table, pipeline string) *DynamoStore {
	return &DynamoStore{
		client:   client,
		table:    table,
		pipeline: pipeline,
		logger:   logging.NewLogger("cursor-dynamodb"),
	}
}

// Load reads the cursor item with a consistent read. A missing item means
// no prior run.
func (s *DynamoStore) Load(ctx context.Context) (int64, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"pipeline": &ddbtypes.AttributeValueMemberS{Value: s.pipeline},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("get cursor item: %w", err)
	}
	if len(out.Item) == 0 {
		return 0, nil
	}

	var item cursorItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, fmt.Errorf("unmarshal cursor item: %w", err)
	}
	return item.Cursor, nil
}

// Save overwrites the cursor item with an updated timestamp.
func (s *DynamoStore) Save(ctx context.Context, value int64) error {
	item, err := attributevalue.MarshalMap(cursorItem{
		Pipeline:  s.pipeline,
		Cursor:    value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal cursor item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put cursor item: %w", err)
	}

	s.logger.Debug().
		Int64("cursor", value).
		Str("table", s.table).
		Str("pipeline", s.pipeline).
		Msg("Cursor saved")
	return nil
}
