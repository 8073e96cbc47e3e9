package service

import (
	"context"
	"strings"
	"time"

	usermodel "LinkChat/module/user/model"
	"LinkChat/tools/errs"
	jwtlib "LinkChat/tools/security"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	coll *mongo.Collection
	opts jwtlib.Options
}

func NewService(db *mongo.Database, opts jwtlib.Options) *Service {
	u := usermodel.User{}
	return &Service{coll: db.Collection(u.TableName()), opts: opts}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.Wrap(err)
}

type SignupParams struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

func (s *Service) Signup(ctx context.Context, in SignupParams) (usermodel.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FullName == "" || in.Email == "" || in.Password == "" || in.Bio == "" {
		return usermodel.User{}, "", errs.ErrValidation.WithDetail("all fields are required")
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"email": in.Email})
	if err != nil {
		return usermodel.User{}, "", errs.WrapMsg(err, "lookup email")
	}
	if n > 0 {
		return usermodel.User{}, "", errs.ErrConflict.WithDetail("account already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return usermodel.User{}, "", errs.Wrap(err)
	}

	now := time.Now().UTC()
	u := usermodel.User{
		ID:         primitive.NewObjectID().Hex(),
		Email:      in.Email,
		FullName:   in.FullName,
		Password:   string(hash),
		Bio:        in.Bio,
		CreateTime: now,
		UpdateTime: now,
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		return usermodel.User{}, "", errs.WrapMsg(err, "insert user")
	}

	token, _, err := jwtlib.Generate(s.opts, u.ID)
	if err != nil {
		return usermodel.User{}, "", errs.Wrap(err)
	}
	return u, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (usermodel.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u usermodel.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return usermodel.User{}, "", errs.ErrUnauthorized.WithDetail("invalid credentials")
	}
	if err != nil {
		return usermodel.User{}, "", errs.WrapMsg(err, "find user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return usermodel.User{}, "", errs.ErrUnauthorized.WithDetail("invalid credentials")
	}
	token, _, err := jwtlib.Generate(s.opts, u.ID)
	if err != nil {
		return usermodel.User{}, "", errs.Wrap(err)
	}
	return u, token, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (usermodel.User, error) {
	var u usermodel.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return usermodel.User{}, errs.ErrNotFound.WithDetail("user " + id)
	}
	if err != nil {
		return usermodel.User{}, errs.WrapMsg(err, "find user")
	}
	return u, nil
}

// ListOthers returns every user except self, password projected away.
func (s *Service) ListOthers(ctx context.Context, selfID string) ([]usermodel.User, error) {
	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "full_name", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": selfID}}, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "list users")
	}
	defer cur.Close(ctx)

	var out []usermodel.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}

type ProfileUpdate struct {
	FullName   string `json:"fullName"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profilePic"`
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (usermodel.User, error) {
	set := bson.M{"update_time": time.Now().UTC()}
	if in.FullName != "" {
		set["full_name"] = in.FullName
	}
	if in.Bio != "" {
		set["bio"] = in.Bio
	}
	if in.ProfilePic != "" {
		set["profile_pic"] = in.ProfilePic
	}
	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u usermodel.User
	if err := res.Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return usermodel.User{}, errs.ErrNotFound.WithDetail("user " + id)
		}
		return usermodel.User{}, errs.WrapMsg(err, "update profile")
	}
	return u, nil
}
