package gh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPRJSONToPR(t *testing.T) {
	payload := []byte(`{
		"number": 101,
		"title": "Add retry to fetch",
		"url": "https://github.com/example/app/pull/101",
		"isDraft": false,
		"author": {"login": "alice"},
		"headRefOid": "deadbeefcafe",
		"headRepositoryOwner": {"login": "alice-fork"},
		"headRefName": "fix-fetch"
	}`)

	var raw prJSON
	require.NoError(t, json.Unmarshal(payload, &raw))

	assert.Equal(t, PR{
		Number:    101,
		Title:     "Add retry to fetch",
		URL:       "https://github.com/example/app/pull/101",
		Author:    "alice",
		HeadSHA:   "deadbeefcafe",
		HeadOwner: "alice-fork",
		HeadRef:   "fix-fetch",
	}, raw.toPR())
}

func TestParsePRList_DraftsFilteredButCounted(t *testing.T) {
	payload := []byte(`[
		{"number": 1, "title": "Ready", "isDraft": false, "author": {"login": "alice"}},
		{"number": 2, "title": "Still cooking", "isDraft": true, "author": {"login": "bob"}},
		{"number": 3, "title": "Also ready", "isDraft": false, "author": {"login": "carol"}}
	]`)

	prs, raw, err := parsePRList(payload)
	require.NoError(t, err)

	assert.Equal(t, 3, raw, "raw count must include drafts for cap detection")
	require.Len(t, prs, 2)
	assert.Equal(t, 1, prs[0].Number)
	assert.Equal(t, 3, prs[1].Number)
}

func TestParsePRList_Invalid(t *testing.T) {
	_, _, err := parsePRList([]byte("not json"))
	assert.ErrorContains(t, err, "failed to parse PR list")
}

func TestPRJSONToPR_MissingAuthor(t *testing.T) {
	// gh returns a null author for PRs from deleted accounts
	var raw prJSON
	require.NoError(t, json.Unmarshal([]byte(`{"number": 7, "author": null}`), &raw))

	pr := raw.toPR()
	assert.Equal(t, 7, pr.Number)
	assert.Empty(t, pr.Author)
}
