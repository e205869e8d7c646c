// Package etl loads a herd-book dataset into the store. A load is
// truncate-and-reload: the previous contents of every bucket, derived scores
// included, are dropped and the dataset becomes the new committed state in a
// single transaction. Scores are recomputed by the caller afterwards.
package etl

import (
	"context"
	"fmt"
	"sort"

	"sowline/pkg/domain"
)

// PromotedIDPrefix prefixes the sow ID minted for a gilt promoted from the
// piglet roster, followed by the piglet number.
const PromotedIDPrefix = "TB"

// Dataset is one parsed herd-book extract. Slices may arrive in any order;
// Apply sorts where ordering matters.
type Dataset struct {
	Sows      []domain.Sow             `json:"sows,omitempty"`
	Piglets   []domain.Piglet          `json:"piglets,omitempty"`
	Breeding  []domain.BreedingRecord  `json:"breeding_records,omitempty"`
	Farrowing []domain.FarrowingRecord `json:"farrowing_records,omitempty"`
	Deaths    []domain.DeathRecord     `json:"death_records,omitempty"`
	Culls     []domain.CullRecord      `json:"cull_records,omitempty"`
}

// Apply replaces the store contents with the dataset. Event records referring
// to sows missing from the roster autovivify a minimal sow so no record is
// orphaned; each autovivification is reported as an informational finding.
// Death and cull events set the sow's terminal status, death taking
// precedence when both exist. Grade-W piglets shipped as breeding stock are
// promoted into the sow roster under a minted ID.
func Apply(ctx context.Context, store domain.PersistentStore, ds Dataset) (domain.Result, error) {
	var findings domain.Result

	result, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.Truncate(); err != nil {
			return err
		}

		for _, s := range ds.Sows {
			if s.Status == "" {
				s.Status = domain.StatusActive
			}
			if _, err := tx.CreateSow(s); err != nil {
				return fmt.Errorf("create sow %s: %w", s.ID, err)
			}
		}

		ensure := func(sowID string, source domain.EntityType) error {
			if _, ok := tx.FindSow(sowID); ok {
				return nil
			}
			_, err := tx.CreateSow(domain.Sow{
				Base:   domain.Base{ID: sowID},
				Status: domain.StatusActive,
			})
			if err != nil {
				return fmt.Errorf("autovivify sow %s: %w", sowID, err)
			}
			findings.Merge(domain.Result{Violations: []domain.Violation{{
				Rule:     "autovivified_sow",
				Severity: domain.SeverityLog,
				Message:  fmt.Sprintf("sow %s created from %s reference; not in roster", sowID, source),
				Entity:   domain.EntitySow,
				EntityID: sowID,
			}}})
			return nil
		}

		for _, r := range ds.Breeding {
			if err := ensure(r.SowID, domain.EntityBreedingRecord); err != nil {
				return err
			}
			if _, err := tx.CreateBreedingRecord(r); err != nil {
				return fmt.Errorf("create breeding record %s/%d: %w", r.SowID, r.Parity, err)
			}
		}
		for _, r := range ds.Farrowing {
			if err := ensure(r.SowID, domain.EntityFarrowingRecord); err != nil {
				return err
			}
			if _, err := tx.CreateFarrowingRecord(r); err != nil {
				return fmt.Errorf("create farrowing record %s/%d: %w", r.SowID, r.Parity, err)
			}
		}
		for _, p := range ds.Piglets {
			if _, err := tx.CreatePiglet(p); err != nil {
				return fmt.Errorf("create piglet %s: %w", p.ID, err)
			}
		}

		// Terminal transitions. Culls apply first so a sow with both events
		// ends up dead.
		for _, r := range ds.Culls {
			if err := ensure(r.SowID, domain.EntityCullRecord); err != nil {
				return err
			}
			if _, err := tx.CreateCullRecord(r); err != nil {
				return fmt.Errorf("create cull record for %s: %w", r.SowID, err)
			}
			if _, err := tx.UpdateSow(r.SowID, func(s *domain.Sow) error {
				if s.Status != domain.StatusDead {
					s.Status = domain.StatusCulled
				}
				return nil
			}); err != nil {
				return err
			}
		}
		for _, r := range ds.Deaths {
			if err := ensure(r.SowID, domain.EntityDeathRecord); err != nil {
				return err
			}
			if _, err := tx.CreateDeathRecord(r); err != nil {
				return fmt.Errorf("create death record for %s: %w", r.SowID, err)
			}
			if _, err := tx.UpdateSow(r.SowID, func(s *domain.Sow) error {
				s.Status = domain.StatusDead
				return nil
			}); err != nil {
				return err
			}
		}

		promoted, err := promoteGilts(tx, ds.Piglets)
		if err != nil {
			return err
		}
		findings.Merge(promoted)
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Merge(findings)
	return result, nil
}

// promoteGilts enters every grade-W piglet shipped as breeding stock into the
// sow roster under the minted ID, carrying the maternal link so the new sow
// hangs off her dam in the descent forest. An existing sow under the minted
// ID wins; the promotion is skipped with a finding.
func promoteGilts(tx domain.Transaction, piglets []domain.Piglet) (domain.Result, error) {
	var findings domain.Result

	candidates := make([]domain.Piglet, 0)
	for _, p := range piglets {
		if p.Grade == nil || *p.Grade != "W" {
			continue
		}
		if p.PSShipment == nil || *p.PSShipment != "W" {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	for _, p := range candidates {
		id := PromotedIDPrefix + p.ID
		if _, ok := tx.FindSow(id); ok {
			findings.Merge(domain.Result{Violations: []domain.Violation{{
				Rule:     "promotion_conflict",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("sow %s already exists; piglet %s not promoted", id, p.ID),
				Entity:   domain.EntityPiglet,
				EntityID: p.ID,
			}}})
			continue
		}
		pigletNo := p.ID
		if _, err := tx.CreateSow(domain.Sow{
			Base:           domain.Base{ID: id},
			SourcePigletNo: &pigletNo,
			DamID:          p.DamID,
			SireID:         p.SireID,
			BirthDate:      p.BirthDate,
			Grade:          p.Grade,
			TeatScore:      p.TeatScore,
			Status:         domain.StatusActive,
		}); err != nil {
			return findings, fmt.Errorf("promote piglet %s: %w", p.ID, err)
		}
	}
	return findings, nil
}
