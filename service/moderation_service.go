package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"steward/events"
	"steward/models"
	"steward/store"
)

// Store paths owned by the moderation subsystem.
const (
	hardBanPath     = "moderation/hardbans.json"
	tempRolePath    = "moderation/temproles.json"
	tempBanPath     = "moderation/tempbans.json"
	jailPath        = "moderation/jail.json"
	stfuPath        = "moderation/stfu.json"
	forceNickPath   = "moderation/forcenick.json"
	stickyRolePath  = "moderation/stickyroles.json"
	lockdownPath    = "moderation/lockdown_settings.json"
	restrictionPath = "moderation/command_restrictions.json"
	reminderPath    = "moderation/reminders.json"
	modHistoryPath  = "moderation/mod_history.json"
)

// Moderation state errors surfaced to handlers.
var (
	ErrAlreadyJailed  = errors.New("member is already jailed")
	ErrNotJailed      = errors.New("member is not jailed")
	ErrNoJailRole     = errors.New("no jail role configured for this guild")
	ErrNotHardBanned  = errors.New("user is not hard-banned")
	ErrNoSuchReminder = errors.New("no reminder with that id")
)

// DueTempRole is one expired temp-role grant ready for removal.
type DueTempRole struct {
	GuildID string
	UserID  string
	RoleID  string
	Record  *models.TempRole
}

// DueTempBan is one expired temp ban ready to lift.
type DueTempBan struct {
	GuildID string
	UserID  string
	Record  *models.TempBan
}

// DueJail is one expired jail term ready for release.
type DueJail struct {
	GuildID string
	UserID  string
	Record  *models.JailRecord
}

// DueReminder is one reminder ready for delivery.
type DueReminder struct {
	UserID   string
	Reminder *models.Reminder
}

// ModerationService owns the durable moderation state: hard bans, temp
// roles, jail records, STFU and forced-nick lists, sticky roles, lockdown
// memory, command restrictions, reminders and the action history. All
// Discord actions stay with the callers.
type ModerationService interface {
	// Hard bans
	AddHardBan(ctx context.Context, guildID, userID string, ban *models.HardBan) error
	RemoveHardBan(ctx context.Context, guildID, userID string) error
	HardBan(ctx context.Context, guildID, userID string) (*models.HardBan, bool, error)
	HardBans(ctx context.Context, guildID string) (map[string]*models.HardBan, error)

	// Temp roles
	AddTempRole(ctx context.Context, guildID, userID, roleID string, record *models.TempRole) error
	RemoveTempRole(ctx context.Context, guildID, userID, roleID string) error
	DueTempRoles(ctx context.Context, now time.Time) ([]*DueTempRole, error)

	// Temp bans
	AddTempBan(ctx context.Context, guildID, userID string, record *models.TempBan) error
	RemoveTempBan(ctx context.Context, guildID, userID string) error
	TempBan(ctx context.Context, guildID, userID string) (*models.TempBan, bool, error)
	DueTempBans(ctx context.Context, now time.Time) ([]*DueTempBan, error)

	// Jail
	SetJailRole(ctx context.Context, guildID, roleID string) error
	JailRole(ctx context.Context, guildID string) (string, error)
	Jail(ctx context.Context, guildID, userID string, record *models.JailRecord) error
	Release(ctx context.Context, guildID, userID string) (*models.JailRecord, error)
	Jailed(ctx context.Context, guildID, userID string) (*models.JailRecord, bool, error)
	DueJails(ctx context.Context, now time.Time) ([]*DueJail, error)

	// STFU list
	ToggleStfu(ctx context.Context, guildID, userID string) (added bool, err error)
	IsStfu(ctx context.Context, guildID, userID string) bool

	// Forced nicknames
	SetForcedNick(ctx context.Context, guildID, userID, nick string) error
	ClearForcedNick(ctx context.Context, guildID, userID string) error
	ForcedNick(ctx context.Context, guildID, userID string) (string, bool)

	// Sticky roles
	SetStickyRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	StickyRoles(ctx context.Context, guildID, userID string) ([]string, error)

	// Lockdown memory
	SaveLockdown(ctx context.Context, guildID, channelID string, prior *bool) error
	PopLockdown(ctx context.Context, guildID, channelID string) (*models.LockdownState, bool, error)
	SetLockdownIgnored(ctx context.Context, guildID string, channelIDs []string) error
	LockdownIgnored(ctx context.Context, guildID string) ([]string, error)
	SetAllLocked(ctx context.Context, guildID string, channelIDs []string) error
	PopAllLocked(ctx context.Context, guildID string) ([]string, error)

	// Command restrictions (also the dispatcher's RestrictionProvider)
	RestrictCommand(ctx context.Context, guildID, command string, roleIDs []string) error
	UnrestrictCommand(ctx context.Context, guildID, command string) error
	Restrictions(ctx context.Context, guildID string) (map[string][]string, error)
	PermittedRoles(guildID, command string) ([]string, bool)

	// Reminders
	AddReminder(ctx context.Context, userID string, r *models.Reminder) (string, error)
	Reminders(ctx context.Context, userID string) ([]*models.Reminder, error)
	RemoveReminder(ctx context.Context, userID, id string) error
	DueReminders(ctx context.Context, now time.Time) ([]*DueReminder, error)

	// History
	RecordAction(ctx context.Context, guildID string, action *models.ModAction) error
	History(ctx context.Context, guildID string, limit int) ([]*models.ModAction, error)
}

type moderationService struct {
	store *store.Store
	bus   *events.Bus
	now   func() time.Time
}

// NewModerationService creates a new moderation service
func NewModerationService(st *store.Store, bus *events.Bus) ModerationService {
	return &moderationService{store: st, bus: bus, now: time.Now}
}

// --- hard bans ---

func (s *moderationService) AddHardBan(ctx context.Context, guildID, userID string, ban *models.HardBan) error {
	doc := &models.HardBanDoc{}
	return s.store.Mutate(hardBanPath, doc, func() error {
		if doc.Bans == nil {
			doc.Bans = make(map[string]map[string]*models.HardBan)
		}
		if doc.Bans[guildID] == nil {
			doc.Bans[guildID] = make(map[string]*models.HardBan)
		}
		doc.Bans[guildID][userID] = ban
		return nil
	})
}

func (s *moderationService) RemoveHardBan(ctx context.Context, guildID, userID string) error {
	doc := &models.HardBanDoc{}
	return s.store.Mutate(hardBanPath, doc, func() error {
		if _, ok := doc.Bans[guildID][userID]; !ok {
			return ErrNotHardBanned
		}
		delete(doc.Bans[guildID], userID)
		return nil
	})
}

func (s *moderationService) HardBan(ctx context.Context, guildID, userID string) (*models.HardBan, bool, error) {
	doc := &models.HardBanDoc{}
	if err := s.store.Load(hardBanPath, doc); err != nil {
		return nil, false, err
	}
	ban, ok := doc.Bans[guildID][userID]
	return ban, ok, nil
}

func (s *moderationService) HardBans(ctx context.Context, guildID string) (map[string]*models.HardBan, error) {
	doc := &models.HardBanDoc{}
	if err := s.store.Load(hardBanPath, doc); err != nil {
		return nil, err
	}
	return doc.Bans[guildID], nil
}

// --- temp roles ---

func (s *moderationService) AddTempRole(ctx context.Context, guildID, userID, roleID string, record *models.TempRole) error {
	doc := &models.TempRoleDoc{}
	return s.store.Mutate(tempRolePath, doc, func() error {
		if doc.Roles == nil {
			doc.Roles = make(map[string]map[string]map[string]*models.TempRole)
		}
		if doc.Roles[guildID] == nil {
			doc.Roles[guildID] = make(map[string]map[string]*models.TempRole)
		}
		if doc.Roles[guildID][userID] == nil {
			doc.Roles[guildID][userID] = make(map[string]*models.TempRole)
		}
		doc.Roles[guildID][userID][roleID] = record
		return nil
	})
}

func (s *moderationService) RemoveTempRole(ctx context.Context, guildID, userID, roleID string) error {
	doc := &models.TempRoleDoc{}
	return s.store.Mutate(tempRolePath, doc, func() error {
		delete(doc.Roles[guildID][userID], roleID)
		return nil
	})
}

func (s *moderationService) DueTempRoles(ctx context.Context, now time.Time) ([]*DueTempRole, error) {
	doc := &models.TempRoleDoc{}
	if err := s.store.Load(tempRolePath, doc); err != nil {
		return nil, err
	}
	var due []*DueTempRole
	for guildID, users := range doc.Roles {
		for userID, roles := range users {
			for roleID, record := range roles {
				if !record.Expires.After(now) {
					due = append(due, &DueTempRole{GuildID: guildID, UserID: userID, RoleID: roleID, Record: record})
				}
			}
		}
	}
	return due, nil
}

// --- temp bans ---

func (s *moderationService) AddTempBan(ctx context.Context, guildID, userID string, record *models.TempBan) error {
	doc := &models.TempBanDoc{}
	return s.store.Mutate(tempBanPath, doc, func() error {
		if doc.Bans == nil {
			doc.Bans = make(map[string]map[string]*models.TempBan)
		}
		if doc.Bans[guildID] == nil {
			doc.Bans[guildID] = make(map[string]*models.TempBan)
		}
		doc.Bans[guildID][userID] = record
		return nil
	})
}

func (s *moderationService) RemoveTempBan(ctx context.Context, guildID, userID string) error {
	doc := &models.TempBanDoc{}
	return s.store.Mutate(tempBanPath, doc, func() error {
		delete(doc.Bans[guildID], userID)
		return nil
	})
}

func (s *moderationService) TempBan(ctx context.Context, guildID, userID string) (*models.TempBan, bool, error) {
	doc := &models.TempBanDoc{}
	if err := s.store.Load(tempBanPath, doc); err != nil {
		return nil, false, err
	}
	record, ok := doc.Bans[guildID][userID]
	return record, ok, nil
}

func (s *moderationService) DueTempBans(ctx context.Context, now time.Time) ([]*DueTempBan, error) {
	doc := &models.TempBanDoc{}
	if err := s.store.Load(tempBanPath, doc); err != nil {
		return nil, err
	}
	var due []*DueTempBan
	for guildID, users := range doc.Bans {
		for userID, record := range users {
			if !record.Expires.After(now) {
				due = append(due, &DueTempBan{GuildID: guildID, UserID: userID, Record: record})
			}
		}
	}
	return due, nil
}

// --- jail ---

func (s *moderationService) SetJailRole(ctx context.Context, guildID, roleID string) error {
	doc := &models.JailDoc{}
	return s.store.Mutate(jailPath, doc, func() error {
		if doc.JailRole == nil {
			doc.JailRole = make(map[string]string)
		}
		doc.JailRole[guildID] = roleID
		return nil
	})
}

func (s *moderationService) JailRole(ctx context.Context, guildID string) (string, error) {
	doc := &models.JailDoc{}
	if err := s.store.Load(jailPath, doc); err != nil {
		return "", err
	}
	roleID, ok := doc.JailRole[guildID]
	if !ok {
		return "", ErrNoJailRole
	}
	return roleID, nil
}

func (s *moderationService) Jail(ctx context.Context, guildID, userID string, record *models.JailRecord) error {
	doc := &models.JailDoc{}
	err := s.store.Mutate(jailPath, doc, func() error {
		if doc.Records == nil {
			doc.Records = make(map[string]map[string]*models.JailRecord)
		}
		if doc.Records[guildID] == nil {
			doc.Records[guildID] = make(map[string]*models.JailRecord)
		}
		if _, ok := doc.Records[guildID][userID]; ok {
			return ErrAlreadyJailed
		}
		doc.Records[guildID][userID] = record
		return nil
	})
	if err != nil {
		return err
	}
	s.bus.Emit(ctx, events.MemberJailedEvent{GuildID: guildID, UserID: userID})
	return nil
}

func (s *moderationService) Release(ctx context.Context, guildID, userID string) (*models.JailRecord, error) {
	var record *models.JailRecord
	doc := &models.JailDoc{}
	err := s.store.Mutate(jailPath, doc, func() error {
		r, ok := doc.Records[guildID][userID]
		if !ok {
			return ErrNotJailed
		}
		record = r
		delete(doc.Records[guildID], userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bus.Emit(ctx, events.MemberJailedEvent{GuildID: guildID, UserID: userID, Released: true})
	return record, nil
}

func (s *moderationService) Jailed(ctx context.Context, guildID, userID string) (*models.JailRecord, bool, error) {
	doc := &models.JailDoc{}
	if err := s.store.Load(jailPath, doc); err != nil {
		return nil, false, err
	}
	record, ok := doc.Records[guildID][userID]
	return record, ok, nil
}

func (s *moderationService) DueJails(ctx context.Context, now time.Time) ([]*DueJail, error) {
	doc := &models.JailDoc{}
	if err := s.store.Load(jailPath, doc); err != nil {
		return nil, err
	}
	var due []*DueJail
	for guildID, users := range doc.Records {
		for userID, record := range users {
			if record.Expires != nil && !record.Expires.After(now) {
				due = append(due, &DueJail{GuildID: guildID, UserID: userID, Record: record})
			}
		}
	}
	return due, nil
}

// --- STFU ---

func (s *moderationService) ToggleStfu(ctx context.Context, guildID, userID string) (bool, error) {
	var added bool
	doc := &models.StfuDoc{}
	err := s.store.Mutate(stfuPath, doc, func() error {
		if doc.Users == nil {
			doc.Users = make(map[string]map[string]bool)
		}
		if doc.Users[guildID] == nil {
			doc.Users[guildID] = make(map[string]bool)
		}
		if doc.Users[guildID][userID] {
			delete(doc.Users[guildID], userID)
		} else {
			doc.Users[guildID][userID] = true
			added = true
		}
		return nil
	})
	return added, err
}

func (s *moderationService) IsStfu(ctx context.Context, guildID, userID string) bool {
	doc := &models.StfuDoc{}
	if err := s.store.Load(stfuPath, doc); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to load STFU list")
		return false
	}
	return doc.Users[guildID][userID]
}

// --- forced nicknames ---

func (s *moderationService) SetForcedNick(ctx context.Context, guildID, userID, nick string) error {
	doc := &models.ForceNickDoc{}
	return s.store.Mutate(forceNickPath, doc, func() error {
		if doc.Nicks == nil {
			doc.Nicks = make(map[string]map[string]string)
		}
		if doc.Nicks[guildID] == nil {
			doc.Nicks[guildID] = make(map[string]string)
		}
		doc.Nicks[guildID][userID] = nick
		return nil
	})
}

func (s *moderationService) ClearForcedNick(ctx context.Context, guildID, userID string) error {
	doc := &models.ForceNickDoc{}
	return s.store.Mutate(forceNickPath, doc, func() error {
		delete(doc.Nicks[guildID], userID)
		return nil
	})
}

func (s *moderationService) ForcedNick(ctx context.Context, guildID, userID string) (string, bool) {
	doc := &models.ForceNickDoc{}
	if err := s.store.Load(forceNickPath, doc); err != nil {
		return "", false
	}
	nick, ok := doc.Nicks[guildID][userID]
	return nick, ok
}

// --- sticky roles ---

func (s *moderationService) SetStickyRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	doc := &models.StickyRoleDoc{}
	return s.store.Mutate(stickyRolePath, doc, func() error {
		if doc.Roles == nil {
			doc.Roles = make(map[string]map[string][]string)
		}
		if doc.Roles[guildID] == nil {
			doc.Roles[guildID] = make(map[string][]string)
		}
		if len(roleIDs) == 0 {
			delete(doc.Roles[guildID], userID)
		} else {
			doc.Roles[guildID][userID] = roleIDs
		}
		return nil
	})
}

func (s *moderationService) StickyRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	doc := &models.StickyRoleDoc{}
	if err := s.store.Load(stickyRolePath, doc); err != nil {
		return nil, err
	}
	return doc.Roles[guildID][userID], nil
}

// --- lockdown memory ---

func (s *moderationService) SaveLockdown(ctx context.Context, guildID, channelID string, prior *bool) error {
	doc := &models.LockdownDoc{}
	return s.store.Mutate(lockdownPath, doc, func() error {
		if doc.Channels == nil {
			doc.Channels = make(map[string]map[string]*models.LockdownState)
		}
		if doc.Channels[guildID] == nil {
			doc.Channels[guildID] = make(map[string]*models.LockdownState)
		}
		doc.Channels[guildID][channelID] = &models.LockdownState{Prior: prior}
		return nil
	})
}

func (s *moderationService) PopLockdown(ctx context.Context, guildID, channelID string) (*models.LockdownState, bool, error) {
	var state *models.LockdownState
	var found bool
	doc := &models.LockdownDoc{}
	err := s.store.Mutate(lockdownPath, doc, func() error {
		state, found = doc.Channels[guildID][channelID]
		if found {
			delete(doc.Channels[guildID], channelID)
		}
		return nil
	})
	return state, found, err
}

func (s *moderationService) SetLockdownIgnored(ctx context.Context, guildID string, channelIDs []string) error {
	doc := &models.LockdownDoc{}
	return s.store.Mutate(lockdownPath, doc, func() error {
		if doc.Ignored == nil {
			doc.Ignored = make(map[string][]string)
		}
		doc.Ignored[guildID] = channelIDs
		return nil
	})
}

func (s *moderationService) LockdownIgnored(ctx context.Context, guildID string) ([]string, error) {
	doc := &models.LockdownDoc{}
	if err := s.store.Load(lockdownPath, doc); err != nil {
		return nil, err
	}
	return doc.Ignored[guildID], nil
}

func (s *moderationService) SetAllLocked(ctx context.Context, guildID string, channelIDs []string) error {
	doc := &models.LockdownDoc{}
	return s.store.Mutate(lockdownPath, doc, func() error {
		if doc.AllLocked == nil {
			doc.AllLocked = make(map[string][]string)
		}
		doc.AllLocked[guildID] = channelIDs
		return nil
	})
}

func (s *moderationService) PopAllLocked(ctx context.Context, guildID string) ([]string, error) {
	var channels []string
	doc := &models.LockdownDoc{}
	err := s.store.Mutate(lockdownPath, doc, func() error {
		channels = doc.AllLocked[guildID]
		delete(doc.AllLocked, guildID)
		return nil
	})
	return channels, err
}

// --- command restrictions ---

func (s *moderationService) RestrictCommand(ctx context.Context, guildID, command string, roleIDs []string) error {
	doc := &models.RestrictionDoc{}
	return s.store.Mutate(restrictionPath, doc, func() error {
		if doc.Commands == nil {
			doc.Commands = make(map[string]map[string][]string)
		}
		if doc.Commands[guildID] == nil {
			doc.Commands[guildID] = make(map[string][]string)
		}
		doc.Commands[guildID][command] = roleIDs
		return nil
	})
}

func (s *moderationService) UnrestrictCommand(ctx context.Context, guildID, command string) error {
	doc := &models.RestrictionDoc{}
	return s.store.Mutate(restrictionPath, doc, func() error {
		delete(doc.Commands[guildID], command)
		return nil
	})
}

func (s *moderationService) Restrictions(ctx context.Context, guildID string) (map[string][]string, error) {
	doc := &models.RestrictionDoc{}
	if err := s.store.Load(restrictionPath, doc); err != nil {
		return nil, err
	}
	return doc.Commands[guildID], nil
}

// PermittedRoles implements the dispatcher's RestrictionProvider.
func (s *moderationService) PermittedRoles(guildID, command string) ([]string, bool) {
	doc := &models.RestrictionDoc{}
	if err := s.store.Load(restrictionPath, doc); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to load command restrictions")
		return nil, false
	}
	roles, ok := doc.Commands[guildID][command]
	return roles, ok
}

// --- reminders ---

func (s *moderationService) AddReminder(ctx context.Context, userID string, r *models.Reminder) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()[:8]
	}
	doc := &models.ReminderDoc{}
	err := s.store.Mutate(reminderPath, doc, func() error {
		if doc.Reminders == nil {
			doc.Reminders = make(map[string][]*models.Reminder)
		}
		doc.Reminders[userID] = append(doc.Reminders[userID], r)
		return nil
	})
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *moderationService) Reminders(ctx context.Context, userID string) ([]*models.Reminder, error) {
	doc := &models.ReminderDoc{}
	if err := s.store.Load(reminderPath, doc); err != nil {
		return nil, err
	}
	return doc.Reminders[userID], nil
}

func (s *moderationService) RemoveReminder(ctx context.Context, userID, id string) error {
	doc := &models.ReminderDoc{}
	return s.store.Mutate(reminderPath, doc, func() error {
		list := doc.Reminders[userID]
		for i, r := range list {
			if r.ID == id {
				doc.Reminders[userID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
		return ErrNoSuchReminder
	})
}

func (s *moderationService) DueReminders(ctx context.Context, now time.Time) ([]*DueReminder, error) {
	doc := &models.ReminderDoc{}
	if err := s.store.Load(reminderPath, doc); err != nil {
		return nil, err
	}
	var due []*DueReminder
	for userID, list := range doc.Reminders {
		for _, r := range list {
			if !r.Expires.After(now) {
				due = append(due, &DueReminder{UserID: userID, Reminder: r})
			}
		}
	}
	return due, nil
}

// --- history ---

func (s *moderationService) RecordAction(ctx context.Context, guildID string, action *models.ModAction) error {
	if action.At.IsZero() {
		action.At = s.now()
	}
	doc := &models.ModHistoryDoc{}
	return s.store.Mutate(modHistoryPath, doc, func() error {
		if doc.Actions == nil {
			doc.Actions = make(map[string][]*models.ModAction)
		}
		doc.Actions[guildID] = append(doc.Actions[guildID], action)
		return nil
	})
}

func (s *moderationService) History(ctx context.Context, guildID string, limit int) ([]*models.ModAction, error) {
	doc := &models.ModHistoryDoc{}
	if err := s.store.Load(modHistoryPath, doc); err != nil {
		return nil, err
	}
	actions := doc.Actions[guildID]
	if limit > 0 && len(actions) > limit {
		actions = actions[len(actions)-limit:]
	}
	return actions, nil
}
