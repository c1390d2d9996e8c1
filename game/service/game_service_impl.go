package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/engine"
	"github.com/wricardo/memo-game/game/session"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("game belongs to another player")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoResultStore  = errors.New("result storage is not configured")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	registry SessionRegistry
	solo     SoloGames
	results  session.ResultStore
	configs  ConfigManager
	tokens   TokenValidator
	names    NameResolver

	mu           sync.RWMutex
	broadcasters []Broadcaster
}

// NewGameService creates a new game service instance
func NewGameService(deps Deps) GameService {
	return &gameServiceImpl{
		registry: deps.Registry,
		solo:     deps.Solo,
		results:  deps.Results,
		configs:  deps.Configs,
		tokens:   deps.Tokens,
		names:    deps.Names,
	}
}

// AddBroadcaster registers a transport that receives topic messages
func (s *gameServiceImpl) AddBroadcaster(b Broadcaster) {
	if b == nil {
		return
	}
	s.mu.Lock()
	s.broadcasters = append(s.broadcasters, b)
	s.mu.Unlock()
}

func (s *gameServiceImpl) broadcast(gameID uuid.UUID, msg *Message) {
	s.mu.RLock()
	targets := append([]Broadcaster(nil), s.broadcasters...)
	s.mu.RUnlock()

	topic := Topic(gameID)
	for _, b := range targets {
		b.Broadcast(topic, msg)
	}
}

// Handle dispatches one protocol request. The returned message is a direct
// reply to the sender; nil means everything went out on the session topic.
func (s *gameServiceImpl) Handle(ctx context.Context, peer Peer, req *Request) *Message {
	if req == nil {
		return errorMessage(ContentBadParams, uuid.Nil)
	}

	switch req.Type {
	case TypeJoin:
		return s.join(peer, req)
	case TypeLeave:
		return s.leave(peer, req)
	case TypeMove:
		return s.move(req)
	default:
		return errorMessage(ContentBadParams, uuid.Nil)
	}
}

func (s *gameServiceImpl) join(peer Peer, req *Request) *Message {
	player, reply := s.authenticate(req.Token)
	if reply != nil {
		return reply
	}

	if req.NumOfPairs > engine.MaxPairs {
		return errorMessage(ContentBadParams, player)
	}

	var sess *session.Session
	if req.WantToPlayWithFriend {
		var room *uuid.UUID
		if req.FriendRoomID != "" {
			id, err := uuid.Parse(req.FriendRoomID)
			switch {
			case err == nil:
				room = &id
			case req.NumOfPairs <= 0:
				return errorMessage(ContentBadParams, player)
			}
		}
		sess = s.registry.JoinWithFriend(player, req.NumOfPairs, room)
	} else {
		if req.NumOfPairs <= 0 {
			return errorMessage(ContentBadParams, player)
		}
		sess = s.registry.JoinRandom(player, req.NumOfPairs)
	}

	if sess == nil {
		return errorMessage(ContentCannotJoin, player)
	}

	s.learnName(player, req.Token)

	msg := s.stateMessage(TypeJoined, sess.State())
	s.broadcast(sess.ID(), msg)
	if peer != nil {
		peer.Bind(sess.ID(), player)
	}
	log.Printf("[dispatch] player %s joined session %s", player, sess.ID())
	return msg
}

func (s *gameServiceImpl) leave(peer Peer, req *Request) *Message {
	player, reply := s.authenticate(req.Token)
	if reply != nil {
		return reply
	}

	s.leaveAs(player)
	if peer != nil {
		peer.Unbind()
	}
	return nil
}

// leaveAs removes player from their session and tells the other side
func (s *gameServiceImpl) leaveAs(player uuid.UUID) {
	sess, state := s.registry.Leave(player)
	if sess == nil {
		return
	}

	msgType := TypeLeft
	if state.Over {
		msgType = TypeGameOver
	}
	s.broadcast(sess.ID(), s.stateMessage(msgType, state))
}

func (s *gameServiceImpl) move(req *Request) *Message {
	gameID, err := uuid.Parse(req.GameID)
	if err != nil {
		return errorMessage(ContentNotFound, uuid.Nil)
	}

	if s.tokens == nil || !s.tokens.IsValid(req.Token) {
		s.broadcast(gameID, errorMessage(ContentUnauthorized, uuid.Nil))
		return nil
	}
	player, ok := s.tokens.UserIDOf(req.Token)
	if !ok {
		s.broadcast(gameID, errorMessage(ContentUserNotFound, uuid.Nil))
		return nil
	}

	sess := s.registry.LookupByID(gameID)
	if sess == nil {
		s.broadcast(gameID, errorMessage(ContentNotFound, player))
		return nil
	}

	cards, state, err := sess.Move(player, req.Index)
	if err != nil {
		s.broadcast(gameID, errorMessage(moveErrorContent(err), player))
		return nil
	}

	msg := s.stateMessage(TypeMoved, state)
	msg.LastMove = make(map[int]int, len(cards))
	for _, c := range cards {
		msg.LastMove[c.Index] = c.Value
	}

	if state.Over {
		msg.Type = TypeGameOver
		s.registry.Finish(sess)
		log.Printf("[dispatch] session %s finished (%s)", gameID, describeOutcome(state))
	}
	s.broadcast(gameID, msg)
	return nil
}

// Disconnect leaves on behalf of a peer whose transport went away
func (s *gameServiceImpl) Disconnect(ctx context.Context, peer Peer) {
	if peer == nil {
		return
	}
	gameID, player, ok := peer.Binding()
	if !ok {
		return
	}
	peer.Unbind()

	log.Printf("[dispatch] player %s disconnected from session %s", player, gameID)
	s.leaveAs(player)
}

// authenticate resolves the player behind token or returns the error reply
func (s *gameServiceImpl) authenticate(token string) (uuid.UUID, *Message) {
	if s.tokens == nil || !s.tokens.IsValid(token) {
		return uuid.Nil, errorMessage(ContentUnauthorized, uuid.Nil)
	}
	player, ok := s.tokens.UserIDOf(token)
	if !ok {
		return uuid.Nil, errorMessage(ContentUserNotFound, uuid.Nil)
	}
	return player, nil
}

// learnName records the display name carried by a token
func (s *gameServiceImpl) learnName(player uuid.UUID, token string) {
	namer, ok := s.tokens.(TokenNamer)
	if !ok {
		return
	}
	registrar, ok := s.names.(NameRegistrar)
	if !ok {
		return
	}
	if name := namer.DisplayNameOf(token); name != "" {
		registrar.Register(player, name)
	}
}

func moveErrorContent(err error) string {
	switch {
	case errors.Is(err, session.ErrGameOver), errors.Is(err, session.ErrSessionNotFound):
		return ContentNotFound
	case errors.Is(err, session.ErrNotStarted):
		return ContentWaiting
	case errors.Is(err, session.ErrNotYourTurn):
		return ContentNotYourTurn
	default:
		return ContentBadParams
	}
}

func describeOutcome(state engine.MatchState) string {
	switch state.Outcome {
	case engine.OutcomeWin:
		return "winner " + state.Winner.String()
	case engine.OutcomeDraw:
		return WinnerDraw
	default:
		return "cancelled"
	}
}

func errorMessage(content string, player uuid.UUID) *Message {
	msg := &Message{Type: TypeError, Content: content}
	if player != uuid.Nil {
		msg.Player1 = &player
	}
	return msg
}

// stateMessage shapes a match snapshot for the wire
func (s *gameServiceImpl) stateMessage(msgType string, state engine.MatchState) *Message {
	msg := &Message{
		Type:                msgType,
		GameID:              uuidPtr(state.ID),
		Player1:             uuidPtr(state.Player1),
		Player2:             uuidPtr(state.Player2),
		Player1Name:         s.nameOf(state.Player1),
		Player2Name:         s.nameOf(state.Player2),
		Board:               make([]*int, len(state.Board)),
		Player1GuessedCards: state.Player1Pairs,
		Player2GuessedCards: state.Player2Pairs,
		GameStarted:         state.Started,
		GameOver:            state.Over,
	}

	for i, v := range state.Board {
		if v != 0 {
			value := v
			msg.Board[i] = &value
		}
	}

	if turn := state.TurnHolder(); turn != uuid.Nil {
		msg.Turn = s.nameOf(turn)
	}

	switch state.Outcome {
	case engine.OutcomeWin:
		winner := s.nameOf(state.Winner)
		msg.Winner = &winner
	case engine.OutcomeDraw:
		draw := WinnerDraw
		msg.Winner = &draw
	}
	return msg
}

func (s *gameServiceImpl) nameOf(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	if s.names != nil {
		if name, ok := s.names.NameOf(id); ok {
			return name
		}
	}
	return id.String()
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// ListSessions returns all live multiplayer sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.registry.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", session.ErrInvalidSessionID, sessionID)
	}
	sess := s.registry.LookupByID(id)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
	}
	return s.sessionInfo(sess), nil
}

func (s *gameServiceImpl) sessionInfo(sess *session.Session) *SessionInfo {
	state := sess.State()
	return &SessionInfo{
		ID:          sess.ID().String(),
		Pool:        string(sess.Pool()),
		CreatedAt:   sess.CreatedAt(),
		Player1Name: s.nameOf(state.Player1),
		Player2Name: s.nameOf(state.Player2),
		State:       state,
	}
}

// ListResults returns paginated finished games, newest first
func (s *gameServiceImpl) ListResults(ctx context.Context, opts ResultsOptions) (*ResultsPage, error) {
	var player uuid.UUID
	if opts.Player != "" {
		id, err := uuid.Parse(opts.Player)
		if err != nil {
			return nil, fmt.Errorf("%w: player %q is not a valid id", ErrInvalidRequest, opts.Player)
		}
		player = id
	}
	if opts.Mode != "" && opts.Mode != session.ModeMultiplayer && opts.Mode != session.ModeSolo {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, opts.Mode)
	}

	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}

	filtered := make([]*session.GameRecord, 0, len(records))
	for _, r := range records {
		if opts.Mode != "" && r.Mode != opts.Mode {
			continue
		}
		if player != uuid.Nil && !r.HasPlayer(player) {
			continue
		}
		filtered = append(filtered, r)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].FinishedAt.After(filtered[j].FinishedAt)
	})

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultResultsLimit
	}
	if opts.Limit > maxResultsLimit {
		opts.Limit = maxResultsLimit
	}

	total := len(filtered)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &ResultsPage{
		Results:      filtered[start:end],
		TotalResults: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// GetResult loads one finished game
func (s *gameServiceImpl) GetResult(ctx context.Context, id string) (*session.GameRecord, error) {
	if s.results == nil {
		return nil, ErrNoResultStore
	}
	return s.results.Load(id)
}

// loadRecords reads every stored result, skipping unreadable entries
func (s *gameServiceImpl) loadRecords() ([]*session.GameRecord, error) {
	if s.results == nil {
		return nil, ErrNoResultStore
	}

	ids, err := s.results.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	records := make([]*session.GameRecord, 0, len(ids))
	for _, id := range ids {
		r, err := s.results.Load(id)
		if err != nil {
			log.Printf("Warning: Failed to load result %s: %v", id, err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// StartSolo begins a single-player countdown game for the token holder
func (s *gameServiceImpl) StartSolo(ctx context.Context, token string, opts SoloOptions) (*SoloInfo, error) {
	player, err := s.playerOf(token)
	if err != nil {
		return nil, err
	}
	if opts.Pairs < 0 || opts.TimeLimitSeconds < 0 {
		return nil, fmt.Errorf("%w: pairs and time limit must not be negative", ErrInvalidRequest)
	}

	pairs, limit, err := s.soloParams(opts)
	if err != nil {
		return nil, err
	}

	game, err := s.solo.Create(player, pairs, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	s.learnName(player, token)
	return &SoloInfo{SoloState: game.State()}, nil
}

// soloParams resolves the pair count and time limit of a new solo game.
// Explicit pairs without a preset scale the default preset's time per pair.
func (s *gameServiceImpl) soloParams(opts SoloOptions) (int, time.Duration, error) {
	var preset *config.Preset
	if opts.Preset != "" {
		p, err := s.configs.LoadPreset(opts.Preset)
		if err != nil {
			return 0, 0, err
		}
		preset = p
	} else {
		preset = s.configs.GetDefault()
	}

	pairs := preset.Pairs
	seconds := preset.TimeLimitSeconds
	if opts.Pairs > 0 {
		pairs = opts.Pairs
		if opts.Preset == "" && preset.Pairs > 0 {
			seconds = preset.TimeLimitSeconds * pairs / preset.Pairs
		}
	}
	if opts.TimeLimitSeconds > 0 {
		seconds = opts.TimeLimitSeconds
	}
	if seconds < 1 {
		seconds = 1
	}
	return pairs, time.Duration(seconds) * time.Second, nil
}

// GetSolo returns the state of a single-player game
func (s *gameServiceImpl) GetSolo(ctx context.Context, id string) (*SoloInfo, error) {
	game, err := s.soloGame(id)
	if err != nil {
		return nil, err
	}
	return &SoloInfo{SoloState: game.State()}, nil
}

// FlipSolo reveals a card in the token holder's single-player game
func (s *gameServiceImpl) FlipSolo(ctx context.Context, token, id string, index int) (*SoloFlipResult, error) {
	game, err := s.ownedSolo(token, id)
	if err != nil {
		return nil, err
	}

	cards, err := game.Flip(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if cards == nil {
		cards = []engine.Card{}
	}
	return &SoloFlipResult{Cards: cards, Game: SoloInfo{SoloState: game.State()}}, nil
}

// LeaveSolo abandons the token holder's single-player game
func (s *gameServiceImpl) LeaveSolo(ctx context.Context, token, id string) (*SoloInfo, error) {
	game, err := s.ownedSolo(token, id)
	if err != nil {
		return nil, err
	}
	if err := s.solo.Delete(game.ID()); err != nil {
		return nil, err
	}
	return &SoloInfo{SoloState: game.State()}, nil
}

func (s *gameServiceImpl) soloGame(id string) (*engine.Solo, error) {
	gameID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", session.ErrInvalidSessionID, id)
	}
	return s.solo.Get(gameID)
}

func (s *gameServiceImpl) ownedSolo(token, id string) (*engine.Solo, error) {
	player, err := s.playerOf(token)
	if err != nil {
		return nil, err
	}
	game, err := s.soloGame(id)
	if err != nil {
		return nil, err
	}
	if game.Player() != player {
		return nil, ErrForbidden
	}
	return game, nil
}

func (s *gameServiceImpl) playerOf(token string) (uuid.UUID, error) {
	if s.tokens == nil || !s.tokens.IsValid(token) {
		return uuid.Nil, ErrUnauthorized
	}
	player, ok := s.tokens.UserIDOf(token)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: token carries no player", ErrUnauthorized)
	}
	return player, nil
}

// Logout revokes token
func (s *gameServiceImpl) Logout(ctx context.Context, token string) error {
	revoker, ok := s.tokens.(TokenRevoker)
	if !ok {
		return fmt.Errorf("%w: logout is not supported", ErrInvalidRequest)
	}
	if err := revoker.Blacklist(token); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

// ListPresets returns available difficulty presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*config.PresetInfo, error) {
	return s.configs.ListPresets()
}

// GetPreset loads a specific preset
func (s *gameServiceImpl) GetPreset(ctx context.Context, id string) (*config.Preset, error) {
	p, err := s.configs.LoadPreset(id)
	if err != nil && errors.Is(err, config.ErrConfigNotFound) {
		infos, listErr := s.configs.ListPresets()
		if listErr == nil && len(infos) > 0 {
			ids := make([]string, 0, len(infos))
			for _, info := range infos {
				ids = append(ids, info.ID)
			}
			return nil, fmt.Errorf("%w: preset '%s'. Available presets: %s", config.ErrConfigNotFound, id, strings.Join(ids, ", "))
		}
	}
	return p, err
}
