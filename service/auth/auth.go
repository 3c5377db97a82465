package auth

import (
	"deal-agent-backend/dao"
	"deal-agent-backend/middleware"
	"deal-agent-backend/model"
	"deal-agent-backend/request"
	"deal-agent-backend/response"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
)

// UserRegister 注册新用户，密码经bcrypt哈希后落库
func UserRegister(req request.UserRegisterRequest) (*response.UserAuthResponse, error) {
	existing, err := dao.GetUserByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %v", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &model.User{
		Email:    req.Email,
		Password: string(hashed),
		Avatar:   req.Avatar,
	}
	if err := dao.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %v", err)
	}

	return buildAuthResponse(user)
}

// UserLogin 校验凭据并签发JWT，查无此人和密码错误返回同一错误
func UserLogin(req request.UserLoginRequest) (*response.UserAuthResponse, error) {
	user, err := dao.GetUserByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %v", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return buildAuthResponse(user)
}

func buildAuthResponse(user *model.User) (*response.UserAuthResponse, error) {
	token, err := middleware.GenerateToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %v", err)
	}
	return &response.UserAuthResponse{
		Email:  user.Email,
		Avatar: user.Avatar,
		Token:  token,
	}, nil
}
