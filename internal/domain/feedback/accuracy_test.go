package feedback

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func categories(records []AccuracyRecord) []Category {
	out := make([]Category, len(records))
	for i, r := range records {
		out[i] = r.Category
	}
	return out
}

func TestClassify(t *testing.T) {
	kale, chard, beets := uuid.New(), uuid.New(), uuid.New()
	l1, l2, l3, l4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	review := Review{
		OrganizationID: uuid.New(),
		OrderID:        uuid.New(),
		ProposalID:     uuid.New(),
		Predicted: []LineOutcome{
			{ProposalLineID: &l1, ItemID: &kale, Quantity: ptr(10)},
			{ProposalLineID: &l2, ItemID: &chard, Quantity: ptr(5)},
			{ProposalLineID: &l3, ItemID: &beets, Quantity: ptr(2)},
			{ProposalLineID: &l4, ItemID: &kale, Quantity: ptr(1)},
		},
		Approved: []LineOutcome{
			{ProposalLineID: &l1, ItemID: &kale, Quantity: ptr(10)},
			{ProposalLineID: &l2, ItemID: &chard, Quantity: ptr(8)},
			{ProposalLineID: &l3, ItemID: &kale, Quantity: ptr(3)},
			{ItemID: &beets, Quantity: ptr(6)},
		},
		PredictedCustomer: "Lakeside Bistro",
		ApprovedCustomer:  "Harbor Grill",
	}

	records := Classify(review)
	require.Len(t, records, 6)
	assert.Equal(t, []Category{
		CategoryAccurate,
		CategoryQuantityWrong,
		CategoryBothWrong,
		CategorySKUWrong,
		CategorySKUWrong,
		CategoryCustomerWrong,
	}, categories(records))

	dropped := records[3]
	assert.Equal(t, l4, *dropped.ProposalLineID)
	assert.Nil(t, dropped.ApprovedItemID)

	handAdded := records[4]
	assert.Nil(t, handAdded.ProposalLineID)
	assert.Equal(t, beets, *handAdded.ApprovedItemID)

	assert.Equal(t, "Harbor Grill", records[5].ApprovedCustomer)
}

func TestClassify_CustomerComparisonIgnoresCase(t *testing.T) {
	records := Classify(Review{PredictedCustomer: "lakeside bistro ", ApprovedCustomer: "Lakeside Bistro"})
	assert.Empty(t, records)
}

func TestClassify_RemovalKept(t *testing.T) {
	l1 := uuid.New()
	records := Classify(Review{
		Predicted: []LineOutcome{{ProposalLineID: &l1}},
		Approved:  []LineOutcome{{ProposalLineID: &l1}},
	})
	assert.Equal(t, []Category{CategoryAccurate}, categories(records))
}
