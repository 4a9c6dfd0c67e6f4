package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskCard(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4111111111111111", "****1111"},
		{"4111 1111 1111 2345", "****2345"},
		{"12", "****"},
		{"", "****"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, maskCard(tt.input), "maskCard(%q)", tt.input)
	}
}

func TestSplitSlot(t *testing.T) {
	date, timeRange, ok := splitSlot("15.02.2026|19:00 - 20:00")
	assert.True(t, ok)
	assert.Equal(t, "15.02.2026", date)
	assert.Equal(t, "19:00 - 20:00", timeRange)

	_, _, ok = splitSlot("15.02.2026")
	assert.False(t, ok)

	_, _, ok = splitSlot("|19:00 - 20:00")
	assert.False(t, ok)

	_, _, ok = splitSlot("15.02.2026|")
	assert.False(t, ok)
}

func TestIsDigits(t *testing.T) {
	assert.True(t, isDigits("123"))
	assert.True(t, isDigits("0"))
	assert.False(t, isDigits(""))
	assert.False(t, isDigits("12a"))
	assert.False(t, isDigits("12 3"))
	assert.False(t, isDigits("１２３")) // full-width digits are not accepted
}

func TestPromoLine(t *testing.T) {
	assert.Equal(t, "Промокод: SKATE10", promoLine(Person{Name: "Иван", Promo: "SKATE10"}))
	assert.Equal(t, "Без промокода (полная цена)", promoLine(Person{Name: "Мария"}))
}

func TestPendingLifecycle(t *testing.T) {
	b := &Bot{pending: map[int64]*pendingPurchase{}}

	assert.Nil(t, b.getPending(1))

	b.setPending(1, &pendingPurchase{stage: stageAwaitCVC, personIdx: 2, date: "15.02.2026", timeRange: "19:00 - 20:00"})

	p := b.getPending(1)
	if assert.NotNil(t, p) {
		assert.Equal(t, stageAwaitCVC, p.stage)
	}
	assert.Nil(t, b.getPending(2), "pending state is per user")

	b.clearPending(1)
	assert.Nil(t, b.getPending(1))
}
