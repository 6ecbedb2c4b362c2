package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"steward/models"
)

func TestInventoryLines_CountsUnusedAndSkipsUnknownKeys(t *testing.T) {
	inv := []*models.ItemInstance{
		{ItemKey: "lucky_charm"},
		{ItemKey: "lucky_charm"},
		{ItemKey: "guard_dog", Used: true},
		{ItemKey: "retired_item"},
	}

	out := inventoryLines(inv)

	assert.Contains(t, out, "2× **Lucky Charm**")
	assert.NotContains(t, out, "Guard Dog")
	assert.NotContains(t, out, "retired_item")
}

func TestInventoryLines_EmptyInventory(t *testing.T) {
	assert.Contains(t, inventoryLines(nil), "No unused items")
}
