package listing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/store"
)

// Stage names the step of a submission that failed.
type Stage string

const (
	StageCatalogue Stage = "catalogue"
	StageProduct   Stage = "product"
	StageMedia     Stage = "media"
)

// SubmitError is returned when a submission fails after validation. Records
// created earlier in the same submission have already been deleted (or the
// attempt failed) by the time it is returned.
type SubmitError struct {
	Stage        Stage
	Cause        error
	RolledBack   []string
	RollbackErrs []error
}

func (e *SubmitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "listing: %s step failed: %v", e.Stage, e.Cause)
	if len(e.RolledBack) > 0 {
		fmt.Fprintf(&b, "; rolled back %s", strings.Join(e.RolledBack, ", "))
	}
	if len(e.RollbackErrs) > 0 {
		msgs := make([]string, len(e.RollbackErrs))
		for i, err := range e.RollbackErrs {
			msgs[i] = err.Error()
		}
		fmt.Fprintf(&b, "; rollback incomplete: %s", strings.Join(msgs, "; "))
	}
	return b.String()
}

func (e *SubmitError) Unwrap() error { return e.Cause }

// Result describes a successful submission.
type Result struct {
	Created          bool                `json:"created"`
	Catalogue        *domain.Catalogue   `json:"catalogue,omitempty"`
	CatalogueCreated bool                `json:"catalogue_created"`
	Product          *domain.Product     `json:"product"`
	Media            []domain.MediaAsset `json:"media"`
}

// Assembler runs listing submissions against the catalogue backend.
type Assembler struct {
	backend store.Backend
}

// NewAssembler creates an Assembler.
func NewAssembler(backend store.Backend) *Assembler {
	return &Assembler{backend: backend}
}

// Submit validates the form and creates or updates the listing it describes.
//
// A create runs catalogue, product, then media. If the product or any image
// fails, the product created here is deleted and then the catalogue, but only
// if this submission created it. Updates are not compensated. Nothing is retried.
func (a *Assembler) Submit(ctx context.Context, f *Form) (*Result, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	if f.IsUpdate() {
		return a.update(ctx, f)
	}
	return a.create(ctx, f)
}

func (a *Assembler) create(ctx context.Context, f *Form) (*Result, error) {
	res := &Result{Created: true}

	var createdCatalogueID int64
	if f.Catalogue.IsNew() {
		c, err := a.backend.CreateCatalogue(ctx, BuildCatalogueCreate(f))
		if err != nil {
			return nil, &SubmitError{Stage: StageCatalogue, Cause: err}
		}
		res.Catalogue, res.CatalogueCreated = c, true
		createdCatalogueID = c.ID
	} else {
		c, err := a.backend.GetCatalogue(ctx, f.Catalogue.ID)
		if err != nil {
			return nil, &SubmitError{Stage: StageCatalogue, Cause: err}
		}
		res.Catalogue = c
	}

	payload := BuildCreatePayload(f, res.Catalogue.ID)
	if len(payload.CategoryIDs) == 0 && res.Catalogue.CategoryID > 0 {
		payload.CategoryIDs = []int64{res.Catalogue.CategoryID}
	}

	product, err := a.backend.CreateProduct(ctx, payload)
	if err != nil {
		serr := &SubmitError{Stage: StageProduct, Cause: err}
		a.rollback(ctx, serr, 0, createdCatalogueID)
		return nil, serr
	}
	res.Product = product

	media, err := a.uploadImages(ctx, f, product, 0, true)
	if err != nil {
		serr := &SubmitError{Stage: StageMedia, Cause: err}
		a.rollback(ctx, serr, product.ID, createdCatalogueID)
		return nil, serr
	}
	res.Media = media
	product.Media = append(product.Media, media...)

	zap.L().Info("listing created",
		zap.Int64("catalogue_id", res.Catalogue.ID),
		zap.Bool("catalogue_created", res.CatalogueCreated),
		zap.Int64("product_id", product.ID),
		zap.Int("variants", len(product.Variants)),
		zap.Int("images", len(media)),
	)
	return res, nil
}

func (a *Assembler) update(ctx context.Context, f *Form) (*Result, error) {
	existing, err := a.backend.GetProduct(ctx, f.ProductID)
	if err != nil {
		return nil, &SubmitError{Stage: StageProduct, Cause: err}
	}

	updated, err := a.backend.UpdateProduct(ctx, f.ProductID, BuildUpdatePayload(f, existing.Variants))
	if err != nil {
		return nil, &SubmitError{Stage: StageProduct, Cause: err}
	}

	media, err := a.uploadImages(ctx, f, updated, len(existing.Media), existing.PrimaryMedia() == nil)
	if err != nil {
		return nil, &SubmitError{Stage: StageMedia, Cause: err}
	}
	updated.Media = append(updated.Media, media...)

	zap.L().Info("listing updated", zap.Int64("product_id", updated.ID), zap.Int("images", len(media)))
	return &Result{Product: updated, Media: media}, nil
}

// uploadImages uploads the form's images in order against the product's first
// size. The first image is primary when primaryFirst is set.
func (a *Assembler) uploadImages(ctx context.Context, f *Form, product *domain.Product, orderOffset int, primaryFirst bool) ([]domain.MediaAsset, error) {
	assets := make([]domain.MediaAsset, 0, len(f.Images))
	if len(f.Images) == 0 {
		return assets, nil
	}

	variantID := firstVariantID(f, product)
	for i, img := range f.Images {
		opts := domain.MediaOptions{
			UsageType:    f.usageType(),
			Platform:     f.platform(),
			DisplayOrder: orderOffset + i,
			IsPrimary:    primaryFirst && i == 0,
		}
		asset, err := a.backend.UploadProductMedia(ctx, product.ID, variantID, img, opts)
		if err != nil {
			return nil, fmt.Errorf("image %d (%s): %w", i+1, img.Filename, err)
		}
		assets = append(assets, *asset)
	}
	return assets, nil
}

// firstVariantID picks the variant created for the first selected size, falling
// back to the first variant returned.
func firstVariantID(f *Form, product *domain.Product) int64 {
	if len(product.Variants) == 0 {
		return 0
	}
	if first, ok := f.Grid().First(); ok {
		for _, v := range product.Variants {
			if v.Size == first {
				return v.ID
			}
		}
	}
	return product.Variants[0].ID
}

// rollback deletes the product and then the catalogue created by this submission.
// Zero IDs are skipped. It runs even if ctx was cancelled.
func (a *Assembler) rollback(ctx context.Context, serr *SubmitError, productID, catalogueID int64) {
	if productID == 0 && catalogueID == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if productID > 0 {
		if err := a.backend.DeleteProduct(ctx, productID); err != nil {
			serr.RollbackErrs = append(serr.RollbackErrs, fmt.Errorf("delete product %d: %w", productID, err))
			zap.L().Error("rollback: failed to delete product", zap.Int64("product_id", productID), zap.Error(err))
		} else {
			serr.RolledBack = append(serr.RolledBack, fmt.Sprintf("product %d", productID))
		}
	}

	if catalogueID > 0 {
		if err := a.backend.DeleteCatalogue(ctx, catalogueID); err != nil {
			serr.RollbackErrs = append(serr.RollbackErrs, fmt.Errorf("delete catalogue %d: %w", catalogueID, err))
			zap.L().Error("rollback: failed to delete catalogue", zap.Int64("catalogue_id", catalogueID), zap.Error(err))
		} else {
			serr.RolledBack = append(serr.RolledBack, fmt.Sprintf("catalogue %d", catalogueID))
		}
	}

	zap.L().Warn("listing submission rolled back",
		zap.String("stage", string(serr.Stage)),
		zap.Error(serr.Cause),
		zap.Strings("rolled_back", serr.RolledBack),
	)
}
