// End-to-end tests over a real PostgreSQL container. Skipped when Docker is
// not available.
package service

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"onepiece-admin/internal/config"
	"onepiece-admin/internal/model"
	"onepiece-admin/internal/repository"
	"onepiece-admin/internal/tgrest"
)

// stubNotifier records dispatched commands instead of POSTing them.
type stubNotifier struct {
	commands []tgrest.Command
	err      error
}

func (n *stubNotifier) Send(_ context.Context, cmd tgrest.Command) error {
	n.commands = append(n.commands, cmd)
	return n.err
}

func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

func setupServiceDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !dockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE users (
			id BIGSERIAL PRIMARY KEY,
			tg_user_id VARCHAR(32) NOT NULL UNIQUE,
			tg_first_name VARCHAR(255) NOT NULL,
			tg_last_name VARCHAR(255),
			tg_username VARCHAR(255),
			bounty BIGINT NOT NULL DEFAULT 0,
			pending_bounty BIGINT NOT NULL DEFAULT 0,
			impel_down_release_date TIMESTAMPTZ,
			impel_down_is_permanent BOOLEAN NOT NULL DEFAULT FALSE,
			crew_id BIGINT,
			last_message_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE devil_fruit (
			id BIGSERIAL PRIMARY KEY,
			category SMALLINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			model VARCHAR(255) UNIQUE,
			status SMALLINT NOT NULL,
			owner_id BIGINT REFERENCES users(id),
			collection_date TIMESTAMPTZ,
			eaten_date TIMESTAMPTZ,
			release_date TIMESTAMPTZ,
			should_show_abilities BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (name, model)
		)`,
		`CREATE TABLE devil_fruit_ability (
			id BIGSERIAL PRIMARY KEY,
			devil_fruit_id BIGINT NOT NULL REFERENCES devil_fruit(id) ON DELETE CASCADE,
			ability_type SMALLINT NOT NULL,
			value INT NOT NULL
		)`,
		`CREATE TABLE prediction (
			id BIGSERIAL PRIMARY KEY,
			type VARCHAR(32) NOT NULL,
			status SMALLINT NOT NULL,
			question TEXT NOT NULL UNIQUE,
			send_date TIMESTAMPTZ,
			end_date TIMESTAMPTZ,
			cut_off_date TIMESTAMPTZ,
			refund_wager BOOLEAN NOT NULL DEFAULT FALSE,
			max_refund_wager BIGINT,
			allow_multiple_choices BOOLEAN NOT NULL DEFAULT TRUE,
			can_withdraw_bet BOOLEAN NOT NULL DEFAULT FALSE,
			result_set_date TIMESTAMPTZ
		)`,
		`CREATE TABLE prediction_option (
			id BIGSERIAL PRIMARY KEY,
			prediction_id BIGINT NOT NULL REFERENCES prediction(id) ON DELETE CASCADE,
			option TEXT NOT NULL,
			is_correct BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE impel_down_log (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			sentence_type VARCHAR(32),
			release_date_time TIMESTAMPTZ,
			is_permanent BOOLEAN NOT NULL DEFAULT FALSE,
			bounty_action VARCHAR(32),
			reason TEXT,
			previous_bounty BIGINT NOT NULL,
			new_bounty BIGINT NOT NULL,
			message_sent BOOLEAN NOT NULL DEFAULT FALSE,
			is_reversed BOOLEAN NOT NULL DEFAULT FALSE,
			date_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range schema {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

func TestPredictionLifecycle(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	notifier := &stubNotifier{}
	svc := NewPredictionService(
		repository.NewPredictionRepository(pool),
		notifier,
		&config.PredictionConfig{MaxRefundableWager: 100000000},
	)
	ctx := context.Background()

	created, err := svc.Save(ctx, &PredictionForm{
		Type:     model.PredictionTypeVersus,
		Question: "A vs B",
		Options:  []string{"A", "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PredictionStatusNew, created.Status)

	sent, err := svc.Send(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionStatusSent, sent.Status)
	require.NotNil(t, sent.SendDate)

	// a second send is a stale action
	_, err = svc.Send(ctx, created.ID)
	var stale *StaleStateError
	require.ErrorAs(t, err, &stale)

	closed, err := svc.CloseBets(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionStatusBetsClosed, closed.Status)

	_, options, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, options, 2)

	done, err := svc.SetResults(ctx, created.ID, []int64{options[0].ID})
	require.NoError(t, err)
	assert.Equal(t, model.PredictionStatusResultSet, done.Status)

	_, options, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, options[0].IsCorrect)
	assert.False(t, options[1].IsCorrect)

	// setting results twice fails
	_, err = svc.SetResults(ctx, created.ID, []int64{options[1].ID})
	require.ErrorAs(t, err, &stale)

	// every transition dispatched a command
	require.Len(t, notifier.commands, 3)
	first, ok := notifier.commands[0].(tgrest.Prediction)
	require.True(t, ok)
	assert.Equal(t, tgrest.ActionSend, first.Action)
	assert.Equal(t, created.ID, first.PredictionID)
}

func TestPredictionService_EditAfterSend(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	notifier := &stubNotifier{}
	svc := NewPredictionService(
		repository.NewPredictionRepository(pool),
		notifier,
		&config.PredictionConfig{MaxRefundableWager: 100000000},
	)
	ctx := context.Background()

	created, err := svc.Save(ctx, &PredictionForm{
		Type:     model.PredictionTypeVersus,
		Question: "Zoro vs Sanji",
		Options:  []string{"Zoro", "Sanji"},
	})
	require.NoError(t, err)

	sent, err := svc.Send(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, sent.SendDate)

	_, before, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)

	// a retroactive cut-off between the send stamp and now is accepted
	cutOff := sent.SendDate.Add(50 * time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	future := time.Now().Add(24 * time.Hour)

	edited, err := svc.Save(ctx, &PredictionForm{
		ID:         created.ID,
		Type:       model.PredictionTypeVersus,
		Question:   "Zoro vs Sanji",
		Options:    []string{"Zoro", "Sanji"},
		SendDate:   &future,
		CutOffDate: &cutOff,
	})
	require.NoError(t, err)

	// the send stamp is immutable once sent, the input is ignored
	require.NotNil(t, edited.SendDate)
	assert.True(t, edited.SendDate.Equal(*sent.SendDate))
	require.NotNil(t, edited.CutOffDate)
	assert.True(t, edited.CutOffDate.Equal(cutOff))
	assert.Equal(t, model.PredictionStatusSent, edited.Status)

	// unchanged option texts keep the stored rows
	_, after, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[1].ID, after[1].ID)

	// changed texts replace the whole option set
	_, err = svc.Save(ctx, &PredictionForm{
		ID:       created.ID,
		Type:     model.PredictionTypeVersus,
		Question: "Zoro vs Sanji",
		Options:  []string{"Zoro", "Sanji", "Draw"},
	})
	require.NoError(t, err)

	_, replaced, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, replaced, 3)
	assert.NotEqual(t, before[0].ID, replaced[0].ID)
}

func TestDevilFruitService_DuplicateAbilityMappings(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	userRepo := repository.NewUserRepository(pool)
	svc := NewDevilFruitService(
		repository.NewDevilFruitRepository(pool),
		userRepo,
		&stubNotifier{},
		testFruitConfig(),
	)
	ctx := context.Background()

	mapping := []AbilityInput{
		{Type: model.AbilityFightDefenseBoost, Value: 60},
		{Type: model.AbilityGiftTax, Value: 40},
	}

	first, err := svc.Save(ctx, &DevilFruitForm{
		Category:  model.CategoryLogia,
		Name:      "Mera",
		Abilities: mapping,
	})
	require.NoError(t, err)
	assert.Equal(t, model.FruitStatusCompleted, first.Status)

	// another fruit with the identical mapping is rejected
	_, err = svc.Save(ctx, &DevilFruitForm{
		Category:  model.CategoryLogia,
		Name:      "Goro",
		Abilities: mapping,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// a different mapping is fine
	_, err = svc.Save(ctx, &DevilFruitForm{
		Category: model.CategoryLogia,
		Name:     "Goro",
		Abilities: []AbilityInput{
			{Type: model.AbilityFightDefenseBoost, Value: 50},
			{Type: model.AbilityGiftTax, Value: 50},
		},
	})
	require.NoError(t, err)

	// re-saving a fruit with its own name and mapping does not clash with itself
	edited, err := svc.Save(ctx, &DevilFruitForm{
		ID:        first.ID,
		Category:  model.CategoryLogia,
		Name:      "Mera Mera no Mi",
		Abilities: mapping,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)
	assert.Equal(t, model.FruitStatusCompleted, edited.Status)
}

func TestImpelDownService_ApplyAndReverse(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	userRepo := repository.NewUserRepository(pool)
	notifier := &stubNotifier{}
	svc := NewImpelDownService(repository.NewImpelDownRepository(pool), userRepo, notifier)
	ctx := context.Background()

	user, err := userRepo.Insert(ctx, &model.User{
		TgUserID:    "400001",
		TgFirstName: "Arlong",
		Bounty:      20000000,
	})
	require.NoError(t, err)

	release := time.Now().Add(72 * time.Hour)
	entry, err := svc.Apply(ctx, &ImpelDownForm{
		UserID:           user.ID,
		SentenceType:     model.SentenceTemporary,
		ReleaseDateTime:  &release,
		BountyAction:     model.BountyActionHalve,
		Reason:           "attacked a crew member",
		SendNotification: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20000000), entry.PreviousBounty)
	assert.Equal(t, int64(10000000), entry.NewBounty)
	assert.True(t, entry.MessageSent)
	require.Len(t, notifier.commands, 1)

	arrested, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, arrested.IsArrested())
	assert.Equal(t, int64(10000000), arrested.Bounty)

	reversed, err := svc.Reverse(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, reversed.IsReversed)

	// only the bounty delta is restored, the sentence stands
	restored, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000000), restored.Bounty)
	assert.True(t, restored.IsArrested())

	// a second reversal is rejected
	_, err = svc.Reverse(ctx, entry.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestImpelDownService_TemporaryRequiresFutureRelease(t *testing.T) {
	svc := NewImpelDownService(nil, nil, &stubNotifier{})
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	_, err := svc.Apply(ctx, &ImpelDownForm{
		UserID:          1,
		SentenceType:    model.SentenceTemporary,
		ReleaseDateTime: &past,
		BountyAction:    model.BountyActionNone,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Apply(ctx, &ImpelDownForm{
		UserID:       1,
		SentenceType: model.SentenceTemporary,
		BountyAction: model.BountyActionNone,
	})
	require.ErrorAs(t, err, &verr)
}
