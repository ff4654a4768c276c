// Package mongostore implements store.Store on MongoDB. Uniqueness of the
// gateway order and payment ids is enforced by unique indexes created in New.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	couponsCollection = "coupons"
	ordersCollection  = "orders"
)

type Store struct {
	client  *mongo.Client
	coupons *mongo.Collection
	orders  *mongo.Collection

	// transactional is set when the deployment is a replica set or
	// sharded cluster and multi-document transactions are available.
	transactional bool
}

var _ store.Store = (*Store)(nil)

// New connects to MongoDB and ensures indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		coupons: db.Collection(couponsCollection),
		orders:  db.Collection(ordersCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.transactional = supportsTransactions(ctx, client)
	return s, nil
}

func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "razorpayOrderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "razorpayPaymentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	_, err = s.coupons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "code", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create coupon index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) findCoupon(ctx context.Context, filter bson.D) (*models.Coupon, error) {
	var c models.Coupon
	err := s.coupons.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) FindActiveCoupon(ctx context.Context, userID, code string) (*models.Coupon, error) {
	return s.findCoupon(ctx, bson.D{
		{Key: "code", Value: code},
		{Key: "userId", Value: userID},
		{Key: "isActive", Value: true},
	})
}

func (s *Store) FindActiveCouponByUser(ctx context.Context, userID string) (*models.Coupon, error) {
	return s.findCoupon(ctx, bson.D{
		{Key: "userId", Value: userID},
		{Key: "isActive", Value: true},
	})
}

func (s *Store) DeactivateCoupon(ctx context.Context, userID, code string) error {
	err := s.coupons.FindOneAndUpdate(ctx,
		bson.D{{Key: "code", Value: code}, {Key: "userId", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "isActive", Value: false},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// ReplaceUserCoupon removes the user's coupons and inserts c. On replica
// sets both steps run in one transaction; a standalone server runs them
// separately.
func (s *Store) ReplaceUserCoupon(ctx context.Context, c *models.Coupon) ([]string, error) {
	if !s.transactional {
		return s.replaceUserCoupon(ctx, c)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		return s.replaceUserCoupon(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	deleted, _ := result.([]string)
	return deleted, nil
}

func (s *Store) replaceUserCoupon(ctx context.Context, c *models.Coupon) ([]string, error) {
	var deleted []string
	for {
		var old models.Coupon
		err := s.coupons.FindOneAndDelete(ctx, bson.D{{Key: "userId", Value: c.UserID}}).Decode(&old)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to delete existing coupon: %w", err)
		}
		deleted = append(deleted, old.Code)
	}

	if _, err := s.coupons.InsertOne(ctx, c); err != nil {
		return deleted, fmt.Errorf("failed to insert coupon: %w", err)
	}
	return deleted, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := s.orders.InsertOne(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}

func (s *Store) GetOrderByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	var o models.Order
	err := s.orders.FindOne(ctx, bson.D{{Key: "razorpayOrderId", Value: razorpayOrderID}}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for i := range o.Products {
		o.Products[i].OrderID = o.ID
	}
	return &o, nil
}

type orderTotals struct {
	Orders int64 `bson:"orders"`
	Amount int64 `bson:"amount"`
	Users  int64 `bson:"users"`
}

type productTotals struct {
	Products int64 `bson:"products"`
}

func (s *Store) SalesTotals(ctx context.Context) (*models.SalesTotals, error) {
	cur, err := s.orders.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "amount", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
			{Key: "users", Value: bson.D{{Key: "$addToSet", Value: "$user"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "orders", Value: 1},
			{Key: "amount", Value: 1},
			{Key: "users", Value: bson.D{{Key: "$size", Value: "$users"}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var ot []orderTotals
	if err := cur.All(ctx, &ot); err != nil {
		return nil, err
	}

	cur, err = s.orders.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$unwind", Value: "$products"}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$products.product"}}}},
		{{Key: "$count", Value: "products"}},
	})
	if err != nil {
		return nil, err
	}
	var pt []productTotals
	if err := cur.All(ctx, &pt); err != nil {
		return nil, err
	}

	totals := &models.SalesTotals{}
	if len(ot) > 0 {
		totals.Orders = ot[0].Orders
		totals.AmountMinor = ot[0].Amount
		totals.Users = ot[0].Users
	}
	if len(pt) > 0 {
		totals.Products = pt[0].Products
	}
	return totals, nil
}

func (s *Store) DailyTotals(ctx context.Context, from, to time.Time) ([]models.DailyTotal, error) {
	cur, err := s.orders.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "createdAt", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: to},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "amount", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}

	var totals []models.DailyTotal
	if err := cur.All(ctx, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}
