package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/postforge/internal/models"
)

const (
	ITEMS_TABLE_NAME  = "Items"
	DRAFTS_TABLE_NAME = "Drafts"

	defaultListLimit = 50
)

// DynamoStore implements Store on top of two DynamoDB tables keyed by the
// deterministic item and draft IDs.
type DynamoStore struct {
	client      *dynamodb.Client
	itemsTable  string
	draftsTable string
}

func NewDynamoStore(client *dynamodb.Client) *DynamoStore {
	itemsTable := os.Getenv("ITEMS_TABLE")
	if itemsTable == "" {
		itemsTable = ITEMS_TABLE_NAME
	}
	draftsTable := os.Getenv("DRAFTS_TABLE")
	if draftsTable == "" {
		draftsTable = DRAFTS_TABLE_NAME
	}

	return &DynamoStore{
		client:      client,
		itemsTable:  itemsTable,
		draftsTable: draftsTable,
	}
}

func (s *DynamoStore) SaveItem(ctx context.Context, item models.SignalItem) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return false, fmt.Errorf("[DynamoDB] Failed to marshal item %s: %w", item.ItemID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.itemsTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(item_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			slog.Debug("[DynamoDB] Item already exists, skipping",
				slog.String("item_id", item.ItemID))
			return false, nil
		}
		return false, fmt.Errorf("[DynamoDB] Failed to put item %s: %w", item.ItemID, err)
	}

	slog.Debug("[DynamoDB] Saved item",
		slog.String("item_id", item.ItemID),
		slog.String("source", string(item.Source)))
	return true, nil
}

func (s *DynamoStore) GetItem(ctx context.Context, itemID string) (*models.SignalItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.itemsTable),
		Key: map[string]types.AttributeValue{
			"item_id": &types.AttributeValueMemberS{Value: itemID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to get item %s: %w", itemID, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item models.SignalItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal item %s: %w", itemID, err)
	}
	return &item, nil
}

func (s *DynamoStore) SaveDraft(ctx context.Context, draft models.Draft) (bool, error) {
	if err := draft.Validate(); err != nil {
		return false, err
	}

	av, err := attributevalue.MarshalMap(draft)
	if err != nil {
		return false, fmt.Errorf("[DynamoDB] Failed to marshal draft %s: %w", draft.DraftID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.draftsTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(draft_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			slog.Debug("[DynamoDB] Draft already exists, skipping",
				slog.String("draft_id", draft.DraftID))
			return false, nil
		}
		return false, fmt.Errorf("[DynamoDB] Failed to put draft %s: %w", draft.DraftID, err)
	}

	slog.Debug("[DynamoDB] Saved draft",
		slog.String("draft_id", draft.DraftID),
		slog.String("status", string(draft.Status)))
	return true, nil
}

func (s *DynamoStore) GetDraft(ctx context.Context, draftID string) (*models.Draft, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.draftsTable),
		Key: map[string]types.AttributeValue{
			"draft_id": &types.AttributeValueMemberS{Value: draftID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to get draft %s: %w", draftID, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var draft models.Draft
	if err := attributevalue.UnmarshalMap(out.Item, &draft); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal draft %s: %w", draftID, err)
	}
	return &draft, nil
}

func (s *DynamoStore) ApplyQualityResult(ctx context.Context, result models.QualityResult) error {
	names := map[string]string{
		"#st": "status",
		"#qs": "quality_score",
		"#qn": "quality_notes",
	}
	values := map[string]types.AttributeValue{
		":pending": &types.AttributeValueMemberS{Value: string(models.StatusPending)},
		":score":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%f", result.Score)},
		":notes":   &types.AttributeValueMemberS{Value: qualityNotes(result)},
	}

	update := "SET #qs = :score, #qn = :notes"
	if !result.Passed {
		update += ", #st = :rejected"
		values[":rejected"] = &types.AttributeValueMemberS{Value: string(models.StatusRejected)}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.draftsTable),
		Key: map[string]types.AttributeValue{
			"draft_id": &types.AttributeValueMemberS{Value: result.DraftID},
		},
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(draft_id) AND #st = :pending"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			// Draft missing or already reviewed; reviewed drafts stay as-is.
			slog.Debug("[DynamoDB] Skipping quality result for non-pending draft",
				slog.String("draft_id", result.DraftID))
			return nil
		}
		return fmt.Errorf("[DynamoDB] Failed to apply quality result for %s: %w", result.DraftID, err)
	}
	return nil
}

func (s *DynamoStore) UpdateDraftReview(ctx context.Context, draftID string, update models.DraftUpdate) (*models.Draft, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var sets []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	if update.Content != nil {
		names["#ct"] = "content"
		values[":content"] = &types.AttributeValueMemberS{Value: *update.Content}
		sets = append(sets, "#ct = :content")
	}
	if update.HumanLines != nil {
		names["#hl"] = "human_lines"
		values[":human_lines"] = &types.AttributeValueMemberS{Value: *update.HumanLines}
		sets = append(sets, "#hl = :human_lines")
	}
	if update.ReviewNotes != nil {
		names["#rn"] = "review_notes"
		values[":review_notes"] = &types.AttributeValueMemberS{Value: *update.ReviewNotes}
		sets = append(sets, "#rn = :review_notes")
	}
	if update.Status != nil {
		names["#st"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(*update.Status)}
		sets = append(sets, "#st = :status")

		if *update.Status == models.StatusApproved || *update.Status == models.StatusRejected {
			names["#ra"] = "reviewed_at"
			values[":reviewed_at"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)}
			sets = append(sets, "#ra = :reviewed_at")
		}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.draftsTable),
		Key: map[string]types.AttributeValue{
			"draft_id": &types.AttributeValueMemberS{Value: draftID},
		},
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(draft_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[DynamoDB] Failed to update draft %s: %w", draftID, err)
	}

	slog.Info("[DynamoDB] Updated draft", slog.String("draft_id", draftID))
	return s.GetDraft(ctx, draftID)
}

func (s *DynamoStore) ListDrafts(ctx context.Context, status *models.DraftStatus, limit int) ([]models.Draft, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(s.draftsTable),
	}
	if status != nil {
		input.FilterExpression = aws.String("#st = :status")
		input.ExpressionAttributeNames = map[string]string{"#st": "status"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(*status)},
		}
	}

	var drafts []models.Draft
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for drafts failed: %w", err)
		}

		var page []models.Draft
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal drafts page: %w", err)
		}
		drafts = append(drafts, page...)
	}

	return sortAndLimitDrafts(drafts, limit), nil
}

func (s *DynamoStore) SetTweetRef(ctx context.Context, draftID, tweetID, tweetURL string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.draftsTable),
		Key: map[string]types.AttributeValue{
			"draft_id": &types.AttributeValueMemberS{Value: draftID},
		},
		UpdateExpression:    aws.String("SET #ti = :tweet_id, #tu = :tweet_url"),
		ConditionExpression: aws.String("attribute_exists(draft_id)"),
		ExpressionAttributeNames: map[string]string{
			"#ti": "tweet_id",
			"#tu": "tweet_url",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tweet_id":  &types.AttributeValueMemberS{Value: tweetID},
			":tweet_url": &types.AttributeValueMemberS{Value: tweetURL},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("[DynamoDB] Failed to set tweet ref for %s: %w", draftID, err)
	}
	return nil
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.draftsTable),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Ping failed: %w", err)
	}
	return nil
}

// sortAndLimitDrafts orders newest first. The drafts table has no composite
// index so ordering happens client side; volumes are tiny (tens of drafts).
func sortAndLimitDrafts(drafts []models.Draft, limit int) []models.Draft {
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].CreatedAt.After(drafts[j].CreatedAt)
	})
	if len(drafts) > limit {
		drafts = drafts[:limit]
	}
	return drafts
}

func qualityNotes(result models.QualityResult) string {
	if len(result.Issues) == 0 {
		return "Passed"
	}
	return strings.Join(result.Issues, "; ")
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
