package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

func TestBuildCardListQueries(t *testing.T) {
	blocked := domain.CardStatusBlocked
	owner := "owner-1"

	tests := []struct {
		name      string
		filter    CardFilter
		wantList  string
		wantCount string
		wantArgs  []any
	}{
		{
			name:      "no filter uses default page",
			filter:    CardFilter{},
			wantList:  "SELECT " + cardColumns + " FROM cards WHERE 1=1 ORDER BY created_at, id LIMIT 20 OFFSET 0",
			wantCount: "SELECT COUNT(*) FROM cards WHERE 1=1",
			wantArgs:  []any{},
		},
		{
			name:      "status only",
			filter:    CardFilter{Status: &blocked, Limit: 5, Offset: 10},
			wantList:  "SELECT " + cardColumns + " FROM cards WHERE 1=1 AND status=$1 ORDER BY created_at, id LIMIT 5 OFFSET 10",
			wantCount: "SELECT COUNT(*) FROM cards WHERE 1=1 AND status=$1",
			wantArgs:  []any{blocked},
		},
		{
			name:      "status and owner",
			filter:    CardFilter{Status: &blocked, OwnerID: &owner, Limit: 10, Offset: -3},
			wantList:  "SELECT " + cardColumns + " FROM cards WHERE 1=1 AND status=$1 AND owner_id=$2 ORDER BY created_at, id LIMIT 10 OFFSET 0",
			wantCount: "SELECT COUNT(*) FROM cards WHERE 1=1 AND status=$1 AND owner_id=$2",
			wantArgs:  []any{blocked, owner},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, count, args := buildCardListQueries(tc.filter)
			assert.Equal(t, tc.wantList, list)
			assert.Equal(t, tc.wantCount, count)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestCardFilterMatches(t *testing.T) {
	active := domain.CardStatusActive
	owner := "owner-1"
	card := &domain.Card{OwnerID: "owner-1", Status: domain.CardStatusActive}

	assert.True(t, CardFilter{}.Matches(card))
	assert.True(t, CardFilter{Status: &active, OwnerID: &owner}.Matches(card))

	other := "owner-2"
	assert.False(t, CardFilter{OwnerID: &other}.Matches(card))
	blocked := domain.CardStatusBlocked
	assert.False(t, CardFilter{Status: &blocked}.Matches(card))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}

func TestIsUUID(t *testing.T) {
	assert.True(t, isUUID("5f0c7a8e-3d4b-4c1e-9a2f-0b1c2d3e4f50"))
	assert.False(t, isUUID("card-1"))
	assert.False(t, isUUID(""))
}

func TestMatchPairComparesCanonicalIDs(t *testing.T) {
	first := "5f0c7a8e-3d4b-4c1e-9a2f-0b1c2d3e4f50"
	second := "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
	cards := []domain.Card{{ID: second}, {ID: first}}

	tests := []struct {
		name      string
		firstID   string
		secondID  string
		wantFirst bool
		wantSec   bool
	}{
		{name: "canonical", firstID: first, secondID: second, wantFirst: true, wantSec: true},
		{name: "upper case", firstID: strings.ToUpper(first), secondID: second, wantFirst: true, wantSec: true},
		{name: "braced", firstID: "{" + first + "}", secondID: "urn:uuid:" + second, wantFirst: true, wantSec: true},
		{name: "missing second", firstID: first, secondID: "1b2c3d4e-5f6a-4b7c-8d9e-0f1a2b3c4d5e", wantFirst: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, b := matchPair(cards, tc.firstID, tc.secondID)
			if tc.wantFirst {
				require.NotNil(t, a)
				assert.Equal(t, first, a.ID)
			} else {
				assert.Nil(t, a)
			}
			if tc.wantSec {
				require.NotNil(t, b)
				assert.Equal(t, second, b.ID)
			} else {
				assert.Nil(t, b)
			}
		})
	}
}
