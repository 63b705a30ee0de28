package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMsgJSONRegex(t *testing.T) {
	match := loadMsgJSONRe.FindStringSubmatch(`javascript:b_loadmsgjson(21777803,'','responsive')`)
	require.NotNil(t, match)
	assert.Equal(t, "21777803", match[1])
}

func TestExtractPageRowsParsing(t *testing.T) {
	html := `
	<table class="table-striped">
		<tbody>
			<tr><td><b>Date</b></td><td>From</td><td>List</td><td>Attach</td><td>Subject</td></tr>
			<tr>
				<td>10/29/25</td>
				<td>Jane Roe</td>
				<td>lamaaa</td>
				<td>Yes</td>
				<td><a href="javascript:b_loadmsgjson(21777803,'','responsive')">SIBTF question</a></td>
			</tr>
			<tr>
				<td>10/30/25</td>
				<td>John Doe</td>
				<td>lamaaa</td>
				<td></td>
				<td><a href="javascript:b_loadmsgjson(21777999,'','responsive')">Re: SIBTF question</a></td>
			</tr>
		</tbody>
	</table>`

	rows, err := parseResultRows(html, 3, 40)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "21777803", rows[0].messageID)
	assert.True(t, rows[0].hasAttachment)
	assert.Equal(t, "Jane Roe", rows[0].fromField)
	assert.Equal(t, "lamaaa", rows[0].listName)
	assert.Equal(t, "10/29/25", rows[0].dateStr)
	assert.Equal(t, 41, rows[0].position)
	assert.Equal(t, 3, rows[0].page)
	assert.Equal(t, "21777999", rows[1].messageID)
	assert.False(t, rows[1].hasAttachment)
	assert.Equal(t, 42, rows[1].position)
	assert.Equal(t, "SIBTF question", rows[0].subject)
}

func TestContainsLoginMarker(t *testing.T) {
	assert.True(t, containsLoginMarker(`<html><body><form id="login_form"></form></body></html>`))
	assert.True(t, containsLoginMarker(`<a href="/?pg=login">session expired</a>`))
	assert.False(t, containsLoginMarker(`<table class="table-striped"><tbody></tbody></table>`))
}
