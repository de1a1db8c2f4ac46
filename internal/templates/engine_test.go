package templates

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRenderUnknownTemplate(t *testing.T) {
	out, err := Render("mortgage", map[string]string{"partyOne": "Alice"})
	assert.Empty(t, out)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	_, err = Lookup("")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.False(t, Exists("mortgage"))
}

func TestRenderPurchaseMissingPrice(t *testing.T) {
	out, err := Render(Purchase, map[string]string{"partyOne": "Alice", "partyTwo": "Bob"})
	require.NoError(t, err)

	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "[AMOUNT]")
	assert.Contains(t, out, "[PROPERTY ADDRESS]")
}

func TestRenderEveryTemplateWithNoFields(t *testing.T) {
	for _, tmpl := range List() {
		t.Run(string(tmpl.ID), func(t *testing.T) {
			out, err := Render(tmpl.ID, nil)
			require.NoError(t, err)

			for _, f := range tmpl.Fields {
				assert.Contains(t, out, f.Placeholder, "field %s", f.Key)
			}
			assert.Contains(t, out, "SIGNATURES")
		})
	}
}

func TestRenderEveryTemplateWithAllFields(t *testing.T) {
	for _, tmpl := range List() {
		t.Run(string(tmpl.ID), func(t *testing.T) {
			fields := map[string]string{}
			for _, f := range tmpl.Fields {
				fields[f.Key] = "value-of-" + f.Key
			}

			out, err := Render(tmpl.ID, fields)
			require.NoError(t, err)

			for _, f := range tmpl.Fields {
				assert.Contains(t, out, "value-of-"+f.Key)
				assert.NotContains(t, out, f.Placeholder, "field %s", f.Key)
			}
		})
	}
}

func TestRenderBlankValuesUsePlaceholder(t *testing.T) {
	out, err := Render(Renovation, map[string]string{"contractPrice": "   ", "partyTwo": " Acme Builders "})
	require.NoError(t, err)

	assert.Contains(t, out, "[AMOUNT]")
	assert.Contains(t, out, "Contractor: Acme Builders\n")
}

func TestRenderIgnoresUnknownKeys(t *testing.T) {
	withExtra, err := Render(LeaseOption, map[string]string{"monthlyRent": "$2,000", "color": "blue"})
	require.NoError(t, err)
	without, err := Render(LeaseOption, map[string]string{"monthlyRent": "$2,000"})
	require.NoError(t, err)

	assert.Equal(t, without, withExtra)
	assert.NotContains(t, withExtra, "blue")
}

func TestRenderIsDeterministic(t *testing.T) {
	fields := map[string]string{"partyOne": "Alice", "capitalContributionOne": "$50,000"}
	first, err := Render(JointVenture, fields)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Render(JointVenture, fields)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, first, r)
	}
}

func TestListIsStableAndCopied(t *testing.T) {
	list := List()
	require.Len(t, list, 4)

	ids := make([]string, 0, len(list))
	for _, tmpl := range list {
		ids = append(ids, string(tmpl.ID))
		assert.True(t, Exists(string(tmpl.ID)))
	}
	assert.Equal(t, "purchase,renovation,joint-venture,lease-option", strings.Join(ids, ","))

	list[0].Fields[0].Placeholder = "mutated"
	again := List()
	assert.NotEqual(t, "mutated", again[0].Fields[0].Placeholder)
}
