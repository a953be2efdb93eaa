package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// AdminServiceName is the fully-qualified name of the AdminService service.
	AdminServiceName = "rollcall.v1.AdminService"
	// RosterAdminServiceName is the fully-qualified name of the RosterAdminService service.
	RosterAdminServiceName = "rollcall.v1.RosterAdminService"
)

// Procedure paths, in the form "/<service>/<method>".
const (
	AdminServiceLoginProcedure = "/rollcall.v1.AdminService/Login"

	RosterAdminServiceListGroupsProcedure      = "/rollcall.v1.RosterAdminService/ListGroups"
	RosterAdminServiceGetGroupProcedure        = "/rollcall.v1.RosterAdminService/GetGroup"
	RosterAdminServiceUpdateGroupProcedure     = "/rollcall.v1.RosterAdminService/UpdateGroup"
	RosterAdminServiceUpsertMemberProcedure    = "/rollcall.v1.RosterAdminService/UpsertMember"
	RosterAdminServiceGetMemberProcedure       = "/rollcall.v1.RosterAdminService/GetMember"
	RosterAdminServiceDeleteMemberProcedure    = "/rollcall.v1.RosterAdminService/DeleteMember"
	RosterAdminServiceListMembersProcedure     = "/rollcall.v1.RosterAdminService/ListMembers"
	RosterAdminServiceGetMemberStatsProcedure  = "/rollcall.v1.RosterAdminService/GetMemberStats"
	RosterAdminServiceListCheckinsProcedure    = "/rollcall.v1.RosterAdminService/ListCheckins"
	RosterAdminServiceCreateAutoReplyProcedure = "/rollcall.v1.RosterAdminService/CreateAutoReply"
	RosterAdminServiceListAutoRepliesProcedure = "/rollcall.v1.RosterAdminService/ListAutoReplies"
	RosterAdminServiceDeleteAutoReplyProcedure = "/rollcall.v1.RosterAdminService/DeleteAutoReply"
	RosterAdminServicePreviewTemplateProcedure = "/rollcall.v1.RosterAdminService/PreviewTemplate"
)

// procedureMux routes a service's procedures to their unary handlers.
type procedureMux map[string]http.Handler

func (m procedureMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.URL.Path]; ok {
		h.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func withJSON(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

// NewAdminServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and
// the handler itself.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	return "/" + AdminServiceName + "/", procedureMux{
		AdminServiceLoginProcedure: connect.NewUnaryHandler(AdminServiceLoginProcedure, svc.Login, opts...),
	}
}

// NewRosterAdminServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and
// the handler itself.
func NewRosterAdminServiceHandler(svc *RosterAdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	return "/" + RosterAdminServiceName + "/", procedureMux{
		RosterAdminServiceListGroupsProcedure:      connect.NewUnaryHandler(RosterAdminServiceListGroupsProcedure, svc.ListGroups, opts...),
		RosterAdminServiceGetGroupProcedure:        connect.NewUnaryHandler(RosterAdminServiceGetGroupProcedure, svc.GetGroup, opts...),
		RosterAdminServiceUpdateGroupProcedure:     connect.NewUnaryHandler(RosterAdminServiceUpdateGroupProcedure, svc.UpdateGroup, opts...),
		RosterAdminServiceUpsertMemberProcedure:    connect.NewUnaryHandler(RosterAdminServiceUpsertMemberProcedure, svc.UpsertMember, opts...),
		RosterAdminServiceGetMemberProcedure:       connect.NewUnaryHandler(RosterAdminServiceGetMemberProcedure, svc.GetMember, opts...),
		RosterAdminServiceDeleteMemberProcedure:    connect.NewUnaryHandler(RosterAdminServiceDeleteMemberProcedure, svc.DeleteMember, opts...),
		RosterAdminServiceListMembersProcedure:     connect.NewUnaryHandler(RosterAdminServiceListMembersProcedure, svc.ListMembers, opts...),
		RosterAdminServiceGetMemberStatsProcedure:  connect.NewUnaryHandler(RosterAdminServiceGetMemberStatsProcedure, svc.GetMemberStats, opts...),
		RosterAdminServiceListCheckinsProcedure:    connect.NewUnaryHandler(RosterAdminServiceListCheckinsProcedure, svc.ListCheckins, opts...),
		RosterAdminServiceCreateAutoReplyProcedure: connect.NewUnaryHandler(RosterAdminServiceCreateAutoReplyProcedure, svc.CreateAutoReply, opts...),
		RosterAdminServiceListAutoRepliesProcedure: connect.NewUnaryHandler(RosterAdminServiceListAutoRepliesProcedure, svc.ListAutoReplies, opts...),
		RosterAdminServiceDeleteAutoReplyProcedure: connect.NewUnaryHandler(RosterAdminServiceDeleteAutoReplyProcedure, svc.DeleteAutoReply, opts...),
		RosterAdminServicePreviewTemplateProcedure: connect.NewUnaryHandler(RosterAdminServicePreviewTemplateProcedure, svc.PreviewTemplate, opts...),
	}
}

// AdminServiceClient is a client for the rollcall.v1.AdminService service.
type AdminServiceClient struct {
	login *connect.Client[LoginRequest, LoginResponse]
}

// NewAdminServiceClient constructs a client for the AdminService. baseURL
// is the server root, e.g. http://localhost:8080.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &AdminServiceClient{
		login: connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AdminServiceLoginProcedure, opts...),
	}
}

// Login calls rollcall.v1.AdminService.Login.
func (c *AdminServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

// RosterAdminServiceClient is a client for the rollcall.v1.RosterAdminService service.
type RosterAdminServiceClient struct {
	listGroups      *connect.Client[ListGroupsRequest, ListGroupsResponse]
	getGroup        *connect.Client[GetGroupRequest, GetGroupResponse]
	updateGroup     *connect.Client[UpdateGroupRequest, UpdateGroupResponse]
	upsertMember    *connect.Client[UpsertMemberRequest, UpsertMemberResponse]
	getMember       *connect.Client[GetMemberRequest, GetMemberResponse]
	deleteMember    *connect.Client[DeleteMemberRequest, DeleteMemberResponse]
	listMembers     *connect.Client[ListMembersRequest, ListMembersResponse]
	getMemberStats  *connect.Client[GetMemberStatsRequest, GetMemberStatsResponse]
	listCheckins    *connect.Client[ListCheckinsRequest, ListCheckinsResponse]
	createAutoReply *connect.Client[CreateAutoReplyRequest, CreateAutoReplyResponse]
	listAutoReplies *connect.Client[ListAutoRepliesRequest, ListAutoRepliesResponse]
	deleteAutoReply *connect.Client[DeleteAutoReplyRequest, DeleteAutoReplyResponse]
	previewTemplate *connect.Client[PreviewTemplateRequest, PreviewTemplateResponse]
}

// NewRosterAdminServiceClient constructs a client for the RosterAdminService.
func NewRosterAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RosterAdminServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &RosterAdminServiceClient{
		listGroups:      connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+RosterAdminServiceListGroupsProcedure, opts...),
		getGroup:        connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+RosterAdminServiceGetGroupProcedure, opts...),
		updateGroup:     connect.NewClient[UpdateGroupRequest, UpdateGroupResponse](httpClient, baseURL+RosterAdminServiceUpdateGroupProcedure, opts...),
		upsertMember:    connect.NewClient[UpsertMemberRequest, UpsertMemberResponse](httpClient, baseURL+RosterAdminServiceUpsertMemberProcedure, opts...),
		getMember:       connect.NewClient[GetMemberRequest, GetMemberResponse](httpClient, baseURL+RosterAdminServiceGetMemberProcedure, opts...),
		deleteMember:    connect.NewClient[DeleteMemberRequest, DeleteMemberResponse](httpClient, baseURL+RosterAdminServiceDeleteMemberProcedure, opts...),
		listMembers:     connect.NewClient[ListMembersRequest, ListMembersResponse](httpClient, baseURL+RosterAdminServiceListMembersProcedure, opts...),
		getMemberStats:  connect.NewClient[GetMemberStatsRequest, GetMemberStatsResponse](httpClient, baseURL+RosterAdminServiceGetMemberStatsProcedure, opts...),
		listCheckins:    connect.NewClient[ListCheckinsRequest, ListCheckinsResponse](httpClient, baseURL+RosterAdminServiceListCheckinsProcedure, opts...),
		createAutoReply: connect.NewClient[CreateAutoReplyRequest, CreateAutoReplyResponse](httpClient, baseURL+RosterAdminServiceCreateAutoReplyProcedure, opts...),
		listAutoReplies: connect.NewClient[ListAutoRepliesRequest, ListAutoRepliesResponse](httpClient, baseURL+RosterAdminServiceListAutoRepliesProcedure, opts...),
		deleteAutoReply: connect.NewClient[DeleteAutoReplyRequest, DeleteAutoReplyResponse](httpClient, baseURL+RosterAdminServiceDeleteAutoReplyProcedure, opts...),
		previewTemplate: connect.NewClient[PreviewTemplateRequest, PreviewTemplateResponse](httpClient, baseURL+RosterAdminServicePreviewTemplateProcedure, opts...),
	}
}

func (c *RosterAdminServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) UpsertMember(ctx context.Context, req *connect.Request[UpsertMemberRequest]) (*connect.Response[UpsertMemberResponse], error) {
	return c.upsertMember.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) GetMember(ctx context.Context, req *connect.Request[GetMemberRequest]) (*connect.Response[GetMemberResponse], error) {
	return c.getMember.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) DeleteMember(ctx context.Context, req *connect.Request[DeleteMemberRequest]) (*connect.Response[DeleteMemberResponse], error) {
	return c.deleteMember.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) ListMembers(ctx context.Context, req *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) GetMemberStats(ctx context.Context, req *connect.Request[GetMemberStatsRequest]) (*connect.Response[GetMemberStatsResponse], error) {
	return c.getMemberStats.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) ListCheckins(ctx context.Context, req *connect.Request[ListCheckinsRequest]) (*connect.Response[ListCheckinsResponse], error) {
	return c.listCheckins.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) CreateAutoReply(ctx context.Context, req *connect.Request[CreateAutoReplyRequest]) (*connect.Response[CreateAutoReplyResponse], error) {
	return c.createAutoReply.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) ListAutoReplies(ctx context.Context, req *connect.Request[ListAutoRepliesRequest]) (*connect.Response[ListAutoRepliesResponse], error) {
	return c.listAutoReplies.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) DeleteAutoReply(ctx context.Context, req *connect.Request[DeleteAutoReplyRequest]) (*connect.Response[DeleteAutoReplyResponse], error) {
	return c.deleteAutoReply.CallUnary(ctx, req)
}

func (c *RosterAdminServiceClient) PreviewTemplate(ctx context.Context, req *connect.Request[PreviewTemplateRequest]) (*connect.Response[PreviewTemplateResponse], error) {
	return c.previewTemplate.CallUnary(ctx, req)
}
