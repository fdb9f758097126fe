package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/snapshot"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
)

// CreateBackup mirrors the primary region into the backup region. It refuses
// to mirror a region whose checksum does not hold.
func (c *SecurityContext) CreateBackup(ctx context.Context) error {
	s, err := c.authorize(models.PermBackup)
	if err != nil {
		return err
	}
	ok, err := c.m.VerifyIntegrity()
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrChecksum
	}

	if err := c.m.SetFlag(models.StatusBackupValid); err != nil {
		return err
	}
	r, err := c.m.Read()
	if err != nil {
		return err
	}
	if err := c.m.WriteBackup(r.Bytes()); err != nil {
		return err
	}
	c.record(ctx, models.EventBackupCreate, s.Slot)
	c.log.Info(ctx, "backup created", "slot", s.Slot)
	return nil
}

// RestoreBackup copies a valid backup over the primary region. The session
// is closed afterwards unless it is a recovery session, since the user table
// may have changed under it.
func (c *SecurityContext) RestoreBackup(ctx context.Context) error {
	s, err := c.authorize(models.PermRestore)
	if err != nil {
		return err
	}
	if err := c.restore(ctx); err != nil {
		return err
	}
	if !s.Recovery() {
		c.SignOut(ctx)
	}
	return nil
}

// restore never clears a lock that was in place before it ran.
func (c *SecurityContext) restore(ctx context.Context) error {
	valid, err := c.m.BackupValid()
	if err != nil {
		return err
	}
	if !valid {
		return common.ErrChecksum
	}

	st, err := c.m.Status()
	if err != nil {
		return err
	}
	wasLocked := st.Formatted() && st.Has(models.StatusLocked)

	b, err := c.m.Backup()
	if err != nil {
		return err
	}
	if err := c.m.WritePrimary(b); err != nil {
		return err
	}
	if wasLocked {
		if err := c.m.SetFlag(models.StatusLocked); err != nil {
			return err
		}
	}
	ok, err := c.m.VerifyIntegrity()
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrChecksum
	}

	c.record(ctx, models.EventBackupRestore, c.sessionSlot())
	c.log.Warn(ctx, "backup restored", "kept_lock", wasLocked)
	return nil
}

// FactoryReset wipes the primary region, the backup and the event log and
// writes defaults. The only entry left in the log is the reset itself.
func (c *SecurityContext) FactoryReset(ctx context.Context) error {
	if _, err := c.authorize(models.PermFactoryReset); err != nil {
		return err
	}
	if err := c.m.WipeBackup(); err != nil {
		return err
	}
	if err := c.m.Format(); err != nil {
		return err
	}
	c.record(ctx, models.EventSystemReset, models.NoUser)
	c.log.Warn(ctx, "factory reset")

	c.state = StateIdle
	c.SignOut(ctx)
	return nil
}

// ExportSnapshot seals the whole store image under passphrase.
func (c *SecurityContext) ExportSnapshot(ctx context.Context, passphrase []byte) ([]byte, error) {
	if _, err := c.authorize(models.PermBackup); err != nil {
		return nil, err
	}
	ok, err := c.m.VerifyIntegrity()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrChecksum
	}
	img, err := c.m.Image()
	if err != nil {
		return nil, err
	}
	blob, err := snapshot.Seal(snapshot.Document{SavedAt: time.Now().UTC(), Image: img}, passphrase)
	if err != nil {
		return nil, fmt.Errorf("seal snapshot: %w", err)
	}
	c.log.Info(ctx, "snapshot exported", "bytes", len(blob))
	return blob, nil
}

// ImportSnapshot replaces the whole store with a sealed image. The image is
// checked before anything is written. Needs SUPER.
func (c *SecurityContext) ImportSnapshot(ctx context.Context, blob, passphrase []byte) error {
	if _, err := c.authorize(models.PermFactoryReset); err != nil {
		return err
	}
	doc, err := snapshot.Open(blob, passphrase)
	if errors.Is(err, snapshot.ErrSeal) {
		return fmt.Errorf("open snapshot: %w", common.ErrInvalidPass)
	}
	if err != nil {
		return fmt.Errorf("open snapshot: %w: %w", common.ErrChecksum, err)
	}

	probe := eeprom.NewMemory()
	if err := eeprom.WriteRange(probe, 0, doc.Image); err != nil {
		return fmt.Errorf("snapshot image: %w", common.ErrChecksum)
	}
	pm := storemap.New(probe)
	st, err := pm.Status()
	if err != nil {
		return err
	}
	ok, err := pm.VerifyIntegrity()
	if err != nil {
		return err
	}
	if !st.Formatted() || !ok {
		return fmt.Errorf("snapshot image: %w", common.ErrChecksum)
	}

	if err := c.m.LoadImage(doc.Image); err != nil {
		return err
	}
	c.record(ctx, models.EventBackupRestore, models.NoUser)
	c.log.Warn(ctx, "snapshot imported", "saved_at", doc.SavedAt)
	c.SignOut(ctx)
	return nil
}
