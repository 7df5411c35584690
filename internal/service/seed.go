package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/internal/model"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/pkg/util"
	"bitwise74/seed-swap/pkg/validators"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgSeedNotFound = "Seed listing not found"

type SeedInput struct {
	PlantType          string `form:"plantType" validate:"required,max=100"`
	VarietyName        string `form:"varietyName" validate:"required,max=100"`
	VarietyDescription string `form:"varietyDescription" validate:"max=2000"`
}

// SeedUpdate carries the fields of an edit. Nil fields keep their current
// value.
type SeedUpdate struct {
	PlantType          *string
	VarietyName        *string
	VarietyDescription *string
}

type SeedService struct {
	DB     *gorm.DB
	Images storage.Store
}

func NewSeedService(db *gorm.DB, images storage.Store) *SeedService {
	return &SeedService{DB: db, Images: images}
}

func (in *SeedInput) normalize() {
	in.PlantType = strings.TrimSpace(in.PlantType)
	in.VarietyName = strings.TrimSpace(in.VarietyName)
	in.VarietyDescription = strings.TrimSpace(in.VarietyDescription)
}

// Create adds a listing owned by ownerID. The owner always comes from the
// session, never from the form.
func (s *SeedService) Create(ctx context.Context, ownerID string, in SeedInput, image storage.Upload) (*model.Seed, error) {
	in.normalize()

	if err := validators.Struct(in); err != nil {
		return nil, err
	}

	id, err := util.NewID(idLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate seed ID, %w", err)
	}

	var ref string
	if !image.Empty() {
		ref, err = s.Images.Store(ctx, storage.FolderSeeds, image)
		if err != nil {
			return nil, err
		}
	}

	seed := &model.Seed{
		ID:                 id,
		PlantType:          in.PlantType,
		VarietyName:        in.VarietyName,
		VarietyDescription: in.VarietyDescription,
		Image:              ref,
		OwnerID:            ownerID,
	}
	seed.SetSearchKeys()

	if err := s.DB.WithContext(ctx).Create(seed).Error; err != nil {
		s.dropImage(ref)

		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperr.NotFound("User not found")
		}

		return nil, fmt.Errorf("failed to create seed, %w", err)
	}

	return seed, nil
}

// ListMine returns the listings of ownerID, newest first
func (s *SeedService) ListMine(ctx context.Context, ownerID string) ([]model.Seed, error) {
	seeds := []model.Seed{}

	err := s.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id").
		Find(&seeds).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seeds, %w", err)
	}

	return seeds, nil
}

// ListAll returns every listing joined with the public fields of its owner
func (s *SeedService) ListAll(ctx context.Context) ([]model.Listing, error) {
	return s.Search(ctx, "")
}

// Search matches q case-insensitively against the plant type and the
// variety name. Both sides are Unicode case folded in Go so the match
// doesn't depend on what the database's LOWER() understands. An empty query
// matches everything.
func (s *SeedService) Search(ctx context.Context, q string) ([]model.Listing, error) {
	listings := []model.Listing{}
	query := s.listings(ctx)

	if q = strings.TrimSpace(q); q != "" {
		pattern := "%" + escapeLike(model.SearchKey(q)) + "%"
		query = query.Where(
			`seeds.plant_type_key LIKE ? ESCAPE '\' OR seeds.variety_name_key LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}

	err := query.
		Order("seeds.created_at DESC").
		Order("seeds.id").
		Scan(&listings).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to search seeds, %w", err)
	}

	return listings, nil
}

// Get returns a single listing with its owner
func (s *SeedService) Get(ctx context.Context, id string) (*model.Listing, error) {
	var listings []model.Listing

	err := s.listings(ctx).
		Where("seeds.id = ?", id).
		Limit(1).
		Scan(&listings).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed, %w", err)
	}

	if len(listings) == 0 {
		return nil, apperr.NotFound(msgSeedNotFound)
	}

	return &listings[0], nil
}

// GetOwned returns the seed only if callerID owns it. A seed owned by
// someone else is reported as forbidden.
func (s *SeedService) GetOwned(ctx context.Context, id, callerID string) (*model.Seed, error) {
	var seed model.Seed

	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&seed).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(msgSeedNotFound)
		}

		return nil, fmt.Errorf("failed to fetch seed, %w", err)
	}

	if seed.OwnerID != callerID {
		return nil, apperr.Forbidden("You can only change your own listings")
	}

	return &seed, nil
}

// Update changes the listing id on behalf of callerID. The image is only
// replaced when a new file is supplied.
func (s *SeedService) Update(ctx context.Context, id, callerID string, in SeedUpdate, image storage.Upload) (*model.Seed, error) {
	seed, err := s.GetOwned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	merged := SeedInput{
		PlantType:          seed.PlantType,
		VarietyName:        seed.VarietyName,
		VarietyDescription: seed.VarietyDescription,
	}

	if in.PlantType != nil {
		merged.PlantType = *in.PlantType
	}
	if in.VarietyName != nil {
		merged.VarietyName = *in.VarietyName
	}
	if in.VarietyDescription != nil {
		merged.VarietyDescription = *in.VarietyDescription
	}

	merged.normalize()
	if err := validators.Struct(merged); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"plant_type":          merged.PlantType,
		"variety_name":        merged.VarietyName,
		"variety_description": merged.VarietyDescription,
		"plant_type_key":      model.SearchKey(merged.PlantType),
		"variety_name_key":    model.SearchKey(merged.VarietyName),
	}

	oldImage := seed.Image
	var newImage string

	if !image.Empty() {
		newImage, err = s.Images.Store(ctx, storage.FolderSeeds, image)
		if err != nil {
			return nil, err
		}

		updates["image"] = newImage
	}

	// Owner in the filter as well, the owner can never change so this only
	// matters if the row vanished in between
	res := s.DB.WithContext(ctx).
		Model(&model.Seed{}).
		Where("id = ? AND owner_id = ?", seed.ID, callerID).
		Updates(updates)
	if res.Error != nil {
		s.dropImage(newImage)
		return nil, fmt.Errorf("failed to update seed, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		s.dropImage(newImage)
		return nil, apperr.NotFound(msgSeedNotFound)
	}

	if newImage != "" {
		s.dropImage(oldImage)
	}

	seed.PlantType = merged.PlantType
	seed.VarietyName = merged.VarietyName
	seed.VarietyDescription = merged.VarietyDescription
	seed.SetSearchKeys()
	if newImage != "" {
		seed.Image = newImage
	}

	return seed, nil
}

// Delete removes the listing in a single statement filtered by both id and
// owner. A listing owned by someone else matches nothing and is reported as
// not found.
func (s *SeedService) Delete(ctx context.Context, id, callerID string) error {
	var deleted []model.Seed

	res := s.DB.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", id, callerID).
		Delete(&deleted)
	if res.Error != nil {
		return fmt.Errorf("failed to delete seed, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return apperr.NotFound(msgSeedNotFound)
	}

	for _, d := range deleted {
		s.dropImage(d.Image)
	}

	return nil
}

func (s *SeedService) listings(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Table("seeds").
		Select("seeds.*, users.username AS owner_username, users.location AS owner_location, users.email AS owner_email").
		Joins("JOIN users ON users.id = seeds.owner_id")
}

func (s *SeedService) dropImage(ref string) {
	if ref == "" {
		return
	}

	if err := s.Images.Remove(context.Background(), ref); err != nil {
		zap.L().Warn("Failed to remove image", zap.String("ref", ref), zap.Error(err))
	}
}

// escapeLike makes every character of s match literally inside a LIKE
// pattern using \ as the escape character
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
