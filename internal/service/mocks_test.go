package service

import (
	"context"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"mindflow/internal/domain"
	"mindflow/internal/oauth"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, bool, error) {
	user, ok := m.usersByID[id]
	return user, ok, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, bool, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, false, nil
	}
	return m.usersByID[id], true, nil
}

func (m *mockUserRepo) SetPasswordHash(_ context.Context, id, passwordHash string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return nil
	}
	user.PasswordHash = passwordHash
	m.usersByID[id] = user
	return nil
}

type mockBindingRepo struct {
	bindings map[string]domain.AuthBinding
}

func newMockBindingRepo() *mockBindingRepo {
	return &mockBindingRepo{bindings: make(map[string]domain.AuthBinding)}
}

func bindingKey(userID string, provider domain.ProviderKind) string {
	return userID + "|" + string(provider)
}

func (m *mockBindingRepo) Upsert(_ context.Context, binding domain.AuthBinding) (domain.AuthBinding, error) {
	key := bindingKey(binding.UserID, binding.Provider)
	if existing, ok := m.bindings[key]; ok {
		existing.ProviderUserID = binding.ProviderUserID
		existing.ProviderEmail = binding.ProviderEmail
		existing.IsVerified = existing.IsVerified || binding.IsVerified
		m.bindings[key] = existing
		return existing, nil
	}
	m.bindings[key] = binding
	return binding, nil
}

func (m *mockBindingRepo) Get(_ context.Context, userID string, provider domain.ProviderKind) (domain.AuthBinding, bool, error) {
	binding, ok := m.bindings[bindingKey(userID, provider)]
	return binding, ok, nil
}

func (m *mockBindingRepo) ListByUser(_ context.Context, userID string) ([]domain.AuthBinding, error) {
	var out []domain.AuthBinding
	for _, kind := range domain.AllProviderKinds {
		if binding, ok := m.bindings[bindingKey(userID, kind)]; ok {
			out = append(out, binding)
		}
	}
	return out, nil
}

func (m *mockBindingRepo) CountVerified(_ context.Context, userID string) (int, error) {
	count := 0
	for _, binding := range m.bindings {
		if binding.UserID == userID && binding.IsVerified {
			count++
		}
	}
	return count, nil
}

func (m *mockBindingRepo) Delete(_ context.Context, userID string, provider domain.ProviderKind) error {
	delete(m.bindings, bindingKey(userID, provider))
	return nil
}

func (m *mockBindingRepo) MarkUsed(_ context.Context, userID string, provider domain.ProviderKind, at time.Time) error {
	key := bindingKey(userID, provider)
	binding, ok := m.bindings[key]
	if !ok {
		return nil
	}
	binding.LastUsed = &at
	m.bindings[key] = binding
	return nil
}

type mockTokenRepo struct {
	tokens map[string]domain.LinkingToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]domain.LinkingToken)}
}

func (m *mockTokenRepo) Create(_ context.Context, token domain.LinkingToken) error {
	m.tokens[token.ID] = token
	return nil
}

func (m *mockTokenRepo) GetUnused(_ context.Context, value string) (domain.LinkingToken, bool, error) {
	for _, token := range m.tokens {
		if token.Token == value && !token.IsUsed {
			return token, true, nil
		}
	}
	return domain.LinkingToken{}, false, nil
}

func (m *mockTokenRepo) MarkUsed(_ context.Context, id string) error {
	token, ok := m.tokens[id]
	if !ok {
		return nil
	}
	token.IsUsed = true
	m.tokens[id] = token
	return nil
}

type mockEmailSender struct {
	magicLinks    []string
	confirmations []string
	sendErr       error
}

func (m *mockEmailSender) SendMagicLink(_ context.Context, toEmail, linkURL string, _ time.Time) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.magicLinks = append(m.magicLinks, toEmail+"|"+linkURL)
	return nil
}

func (m *mockEmailSender) SendLinkConfirmation(_ context.Context, toEmail, providerName string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.confirmations = append(m.confirmations, toEmail+"|"+providerName)
	return nil
}

type mockNoteRepo struct {
	notes map[string]domain.Note
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]domain.Note)}
}

func (m *mockNoteRepo) Create(_ context.Context, note domain.Note) error {
	m.notes[note.ID] = note
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id string) (domain.Note, bool, error) {
	note, ok := m.notes[id]
	return note, ok, nil
}

func (m *mockNoteRepo) ListByIDs(_ context.Context, userID string, ids []string) ([]domain.Note, error) {
	var out []domain.Note
	for _, id := range ids {
		if note, ok := m.notes[id]; ok && note.UserID == userID {
			out = append(out, note)
		}
	}
	return out, nil
}

func (m *mockNoteRepo) UpdateAnnotation(_ context.Context, note domain.Note) error {
	m.notes[note.ID] = note
	return nil
}

func (m *mockNoteRepo) SetEmbeddingID(_ context.Context, noteID, embeddingID string) error {
	note, ok := m.notes[noteID]
	if !ok {
		return nil
	}
	note.EmbeddingID = embeddingID
	m.notes[noteID] = note
	return nil
}

type mockPlanRepo struct {
	plans []domain.Plan
}

func (m *mockPlanRepo) Create(_ context.Context, plan domain.Plan) error {
	m.plans = append(m.plans, plan)
	return nil
}

type mockEmbeddingRepo struct {
	upserts   []domain.NoteEmbedding
	upsertErr error
	results   []domain.SimilarNote
	searchErr error
}

func (m *mockEmbeddingRepo) Upsert(_ context.Context, emb domain.NoteEmbedding) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, emb)
	return nil
}

func (m *mockEmbeddingRepo) Search(_ context.Context, _ string, _ pgvector.Vector, _ int) ([]domain.SimilarNote, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

type mockExchanger struct {
	configured  map[domain.ProviderKind]bool
	info        oauth.UserInfo
	exchangeErr error
	lastState   string
	lastCode    string
}

func newMockExchanger() *mockExchanger {
	return &mockExchanger{
		configured: map[domain.ProviderKind]bool{
			domain.ProviderGoogle:   true,
			domain.ProviderLinkedIn: true,
		},
	}
}

func (m *mockExchanger) Configured(kind domain.ProviderKind) bool {
	return m.configured[kind]
}

func (m *mockExchanger) AuthCodeURL(kind domain.ProviderKind, state string) (string, error) {
	m.lastState = state
	return "https://provider.example/authorize?kind=" + string(kind), nil
}

func (m *mockExchanger) Exchange(_ context.Context, _ domain.ProviderKind, code string) (oauth.UserInfo, error) {
	m.lastCode = code
	if m.exchangeErr != nil {
		return oauth.UserInfo{}, m.exchangeErr
	}
	return m.info, nil
}

type mockConsumeStore struct {
	saved      map[string]string
	saveErr    error
	consumeErr error
}

func newMockConsumeStore() *mockConsumeStore {
	return &mockConsumeStore{saved: make(map[string]string)}
}

func (m *mockConsumeStore) Save(_ context.Context, tokenHash, email string, _ time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[tokenHash] = email
	return nil
}

func (m *mockConsumeStore) Consume(_ context.Context, tokenHash string) (string, bool, error) {
	if m.consumeErr != nil {
		return "", false, m.consumeErr
	}
	email, ok := m.saved[tokenHash]
	if ok {
		delete(m.saved, tokenHash)
	}
	return email, ok, nil
}
