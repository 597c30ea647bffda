package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// CatalogCollection is the MongoDB collection holding bike documents
const CatalogCollection = "bikes"

// CatalogRepository reads the bike catalog from MongoDB
type CatalogRepository struct {
	col *mongo.Collection
}

// NewCatalogRepository creates a catalog repository on dbName
func NewCatalogRepository(client *mongo.Client, dbName string) *CatalogRepository {
	return &CatalogRepository{
		col: client.Database(dbName).Collection(CatalogCollection),
	}
}

// LoadCatalog returns every bike ordered by id. Documents that fail to decode
// or carry negative capacities are skipped.
func (r *CatalogRepository) LoadCatalog(ctx context.Context) ([]models.BikeCatalogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Msg("Failed to query bike catalog")
		return nil, models.NewSystemError(models.ErrorCodeDatabaseError, "catalog_repository", "failed to query catalog", err)
	}
	defer cursor.Close(ctx)

	var catalog []models.BikeCatalogEntry
	for cursor.Next(ctx) {
		var bike models.BikeCatalogEntry
		if err := cursor.Decode(&bike); err != nil {
			log.Warn().Err(err).Msg("Skipping undecodable catalog document")
			continue
		}
		if bike.Capacity.Small < 0 || bike.Capacity.Medium < 0 || bike.Capacity.Large < 0 {
			log.Warn().Str("bike_id", bike.ID).Msg("Skipping catalog entry with negative capacity")
			continue
		}
		catalog = append(catalog, bike)
	}
	if err := cursor.Err(); err != nil {
		return nil, models.NewSystemError(models.ErrorCodeDatabaseError, "catalog_repository", "failed to read catalog", err)
	}

	log.Info().Int("bikes", len(catalog)).Msg("Bike catalog loaded")
	return catalog, nil
}

// UpsertBike writes a catalog entry, replacing any existing one with the same id
func (r *CatalogRepository) UpsertBike(ctx context.Context, bike models.BikeCatalogEntry) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": bike.ID}, bike, options.Replace().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Str("bike_id", bike.ID).Msg("Failed to upsert bike")
		return models.NewSystemError(models.ErrorCodeDatabaseError, "catalog_repository", "failed to upsert bike", err)
	}
	return nil
}
