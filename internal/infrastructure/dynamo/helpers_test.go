package dynamo

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/saas-starter-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "name"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"name":     "Alice",
		"email":    "a@b.com",
		"verified": true,
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: email < name < verified
	assert.Equal(t, "email", ue1.Names["#f0"])
	assert.Equal(t, "name", ue1.Names["#f1"])
	assert.Equal(t, "verified", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"verified": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestUnmarshalItem_DecodesRecord(t *testing.T) {
	item := map[string]types.AttributeValue{
		"identifier": &types.AttributeValueMemberS{Value: "a@x.com:email-verification"},
		"expires_at": &types.AttributeValueMemberN{Value: "1700000000"},
	}
	var rec domain.SecretRecord
	require.NoError(t, unmarshalItem(item, &rec))
	assert.Equal(t, "a@x.com:email-verification", rec.Identifier)
	assert.Equal(t, int64(1700000000), rec.ExpiresAt)
}

func TestUnmarshalItem_CorruptRowIsStorageError(t *testing.T) {
	// expires_at stored as a string is a corrupt row; it must surface as the
	// storage error kind, not an unclassified failure.
	item := map[string]types.AttributeValue{
		"identifier": &types.AttributeValueMemberS{Value: "a@x.com:email-verification"},
		"expires_at": &types.AttributeValueMemberS{Value: "not-a-number"},
	}
	var rec domain.SecretRecord
	err := unmarshalItem(item, &rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestBuildUpdateExpr_Empty(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	require.Error(t, err)
}
