package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"stock-radar/internal/application/analysis"
	alertDomain "stock-radar/internal/domain/alert"
)

func TestSubscriptionRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewSubscriptionRepo(db)
	score := 70.0
	sub := alertDomain.Subscription{
		ID:      "sub-1",
		Name:    "高分通知",
		Type:    alertDomain.SubscriptionScreener,
		Enabled: true,
		Logic:   analysis.LogicAND,
		Conditions: []analysis.Condition{
			{Type: analysis.ConditionNumeric, Numeric: &analysis.NumericCondition{Field: analysis.FieldCompositeScore, Op: analysis.OpGTE, Value: score}},
		},
		Channels: []alertDomain.Channel{alertDomain.ChannelTelegram},
	}

	mock.ExpectExec("INSERT INTO alert_subscriptions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), sub); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestSubscriptionRepo_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	repo := NewSubscriptionRepo(db)

	conditions := `[{"type":"numeric","numeric":{"field":"composite_score","op":">=","value":70}}]`
	rows := sqlmock.NewRows([]string{"id", "name", "type", "enabled", "logic", "conditions", "symbol", "threshold", "channels", "webhook_url", "version"}).
		AddRow("sub-1", "高分通知", "screener", true, "AND", []byte(conditions), "", 0, "{telegram}", "", "v1")

	mock.ExpectQuery("SELECT (.+) FROM alert_subscriptions").
		WillReturnRows(rows)

	subs, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	sub := subs[0]
	if sub.Type != alertDomain.SubscriptionScreener || sub.Logic != analysis.LogicAND {
		t.Errorf("unexpected subscription: %+v", sub)
	}
	if len(sub.Conditions) != 1 || sub.Conditions[0].Numeric == nil || sub.Conditions[0].Numeric.Value != 70 {
		t.Errorf("conditions not restored: %+v", sub.Conditions)
	}
	if len(sub.Channels) != 1 || sub.Channels[0] != alertDomain.ChannelTelegram {
		t.Errorf("channels not restored: %+v", sub.Channels)
	}
}
