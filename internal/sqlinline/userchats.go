package sqlinline

const QAppendUserChat = `--sql 9b2f6e0d-4a7c-4b1e-a8d3-6c5f4e3d2b10
insert into userchats (user_id, chats)
values ($1, $2::jsonb)
on conflict (user_id)
do update set chats = userchats.chats || excluded.chats;
`

const QSelectUserChats = `--sql 5e8a1d3f-7b2c-4f9e-b6a0-8d1c2e3f4a57
select chats from userchats where user_id = $1;
`
